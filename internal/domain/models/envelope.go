package models

// Envelope is the uniform wrapper returned by every medicine API operation.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Reason returns the most specific explanation carried by the envelope.
func (e Envelope[T]) Reason() string {
	switch {
	case e.Error != "":
		return e.Error
	case e.Message != "":
		return e.Message
	case e.Success:
		return ""
	default:
		return "request rejected by medicine service"
	}
}
