package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/pharmacy/internal/domain/models"
)

// TextSender delivers a text message to a phone number.
type TextSender interface {
	SendText(ctx context.Context, to, body string) (string, error)
}

// CheckoutAlert tells the pharmacy over WhatsApp that a customer moved to payment.
type CheckoutAlert struct {
	sender TextSender
	to     string
	logger *zap.Logger
}

// NewCheckoutAlert builds an alert sending to the pharmacy phone number.
func NewCheckoutAlert(sender TextSender, pharmacyPhone string, logger *zap.Logger) *CheckoutAlert {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutAlert{sender: sender, to: pharmacyPhone, logger: logger}
}

// CheckoutStarted implements cart.CheckoutListener.
func (a *CheckoutAlert) CheckoutStarted(ctx context.Context, session string, result models.CheckoutResult) error {
	id, err := a.sender.SendText(ctx, a.to, FormatCheckout(session, result))
	if err != nil {
		return fmt.Errorf("send checkout alert: %w", err)
	}
	a.logger.Info("checkout alert sent", zap.String("session", session), zap.String("message_id", id))
	return nil
}

// FormatCheckout renders the order summary sent to the pharmacy.
func FormatCheckout(session string, result models.CheckoutResult) string {
	var b strings.Builder
	if session == "" {
		session = "anonymous"
	}
	fmt.Fprintf(&b, "New order (%s): %d items, total %.2f\n", session, result.TotalItems, result.TotalPrice)
	for _, line := range result.Lines {
		fmt.Fprintf(&b, "- %s x%d", line.Medicine.Name, line.Quantity)
		if line.Medicine.RequiresPrescription {
			b.WriteString(" (prescription)")
		}
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}
