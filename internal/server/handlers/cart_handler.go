package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/pharmacy/internal/cart"
	"github.com/mamadbah2/pharmacy/internal/catalog"
	"github.com/mamadbah2/pharmacy/internal/domain/models"
)

// MedicineLookup resolves any medicine the catalog has seen.
type MedicineLookup interface {
	Get(id string) (models.Medicine, bool)
}

// CartHandler exposes the session carts over HTTP.
type CartHandler struct {
	sessions *cart.Sessions
	lookup   MedicineLookup
	logger   *zap.Logger
}

// NewCartHandler constructs the HTTP handler adapter.
func NewCartHandler(sessions *cart.Sessions, lookup MedicineLookup, logger *zap.Logger) *CartHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartHandler{sessions: sessions, lookup: lookup, logger: logger}
}

type addItemRequest struct {
	MedicineID string `json:"medicineId" binding:"required"`
	Quantity   *int   `json:"quantity"`
}

type adjustRequest struct {
	Delta *int `json:"delta" binding:"required"`
}

type cartView struct {
	Key        string            `json:"key"`
	Lines      []models.CartLine `json:"lines"`
	TotalItems int               `json:"totalItems"`
	TotalPrice float64           `json:"totalPrice"`
}

// Get returns the cart of the session. An unreadable snapshot is served as an empty cart.
func (h *CartHandler) Get(c *gin.Context) {
	store, err := h.sessions.Get(c.Request.Context(), c.GetHeader(SessionHeader))
	if err != nil {
		h.logger.Warn("serving cart without its snapshot", zap.String("key", store.Key()), zap.Error(err))
	}
	respond(c, http.StatusOK, view(store))
}

// AddItem adds a catalog medicine to the cart. Quantity defaults to 1.
func (h *CartHandler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "medicineId is required")
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	medicine, ok := h.lookup.Get(req.MedicineID)
	if !ok {
		respondError(c, http.StatusNotFound, catalog.ErrNotFound.Error())
		return
	}

	store, ok := h.store(c)
	if !ok {
		return
	}
	if err := store.Add(c.Request.Context(), models.SnapshotOf(medicine), quantity); err != nil {
		respondError(c, statusFor(err), err.Error())
		return
	}
	respond(c, http.StatusOK, view(store))
}

// AdjustItem changes the quantity of a line by delta.
func (h *CartHandler) AdjustItem(c *gin.Context) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "delta is required")
		return
	}

	store, ok := h.store(c)
	if !ok {
		return
	}
	if err := store.AdjustQuantity(c.Request.Context(), c.Param("id"), *req.Delta); err != nil {
		respondError(c, statusFor(err), err.Error())
		return
	}
	respond(c, http.StatusOK, view(store))
}

// RemoveItem drops a line.
func (h *CartHandler) RemoveItem(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	if err := store.Remove(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, statusFor(err), err.Error())
		return
	}
	respond(c, http.StatusOK, view(store))
}

// Clear empties the cart.
func (h *CartHandler) Clear(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	if err := store.Clear(c.Request.Context()); err != nil {
		respondError(c, statusFor(err), err.Error())
		return
	}
	respond(c, http.StatusOK, view(store))
}

// Checkout hands the cart over to payment.
func (h *CartHandler) Checkout(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	result, err := store.Checkout(c.Request.Context())
	if err != nil {
		respondError(c, statusFor(err), err.Error())
		return
	}
	respond(c, http.StatusOK, result)
}

// store resolves the session cart for a mutation. A cart whose snapshot could not be read is
// refused so its stored lines are not overwritten.
func (h *CartHandler) store(c *gin.Context) (*cart.Store, bool) {
	store, err := h.sessions.Get(c.Request.Context(), c.GetHeader(SessionHeader))
	if err != nil {
		h.logger.Warn("cart mutation refused", zap.String("key", store.Key()), zap.Error(err))
		respondError(c, statusFor(err), err.Error())
		return nil, false
	}
	return store, true
}

func view(store *cart.Store) cartView {
	return cartView{
		Key:        store.Key(),
		Lines:      store.Lines(),
		TotalItems: store.TotalItems(),
		TotalPrice: store.TotalPrice(),
	}
}
