// Package cart holds the customer cart and mirrors it into durable storage after every change.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mamadbah2/pharmacy/internal/domain/models"
	"github.com/mamadbah2/pharmacy/internal/notify"
)

// PaymentPath is where the storefront continues after a successful checkout.
const PaymentPath = "/payment"

var (
	// ErrSnapshotNotFound is returned by Storage when no snapshot exists for a key.
	ErrSnapshotNotFound = errors.New("cart snapshot not found")

	// ErrEmptyCart rejects checkout of a cart without lines.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrInvalidQuantity rejects additions with a quantity below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrPersist wraps storage write failures. The in-memory cart keeps the mutation.
	ErrPersist = errors.New("persist cart snapshot")
)

// Storage persists raw cart snapshots under a key.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Remove(ctx context.Context, key string) error
}

// CheckoutListener is told when a customer moves on to payment.
type CheckoutListener interface {
	CheckoutStarted(ctx context.Context, session string, result models.CheckoutResult) error
}

// Store is the cart of one session. All methods are safe for concurrent use.
type Store struct {
	key       string
	session   string
	storage   Storage
	notifier  notify.Notifier
	listeners []CheckoutListener
	logger    *zap.Logger

	mu    sync.Mutex
	lines []models.CartLine
}

// NewStore builds an empty store bound to a storage key. Call Load to restore the snapshot.
func NewStore(key string, storage Storage, notifier notify.Notifier, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.Nop
	}
	return &Store{
		key:      key,
		storage:  storage,
		notifier: notifier,
		logger:   logger,
		lines:    []models.CartLine{},
	}
}

// Key returns the storage key of the store.
func (s *Store) Key() string { return s.key }

// OnCheckout registers a listener for successful checkouts.
func (s *Store) OnCheckout(l CheckoutListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Load restores the persisted snapshot. Missing or corrupt snapshots give an empty cart.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = []models.CartLine{}

	data, err := s.storage.Load(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrSnapshotNotFound) {
			return nil
		}
		return fmt.Errorf("load cart %s: %w", s.key, err)
	}

	var lines []models.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		s.logger.Warn("discarding corrupt cart snapshot", zap.String("key", s.key), zap.Error(err))
		return nil
	}

	s.lines = sanitize(lines)
	return nil
}

// Lines returns a copy of the cart lines.
func (s *Store) Lines() []models.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyLines(s.lines)
}

// Add puts quantity units of a medicine in the cart, merging with an existing line.
func (s *Store) Add(ctx context.Context, medicine models.CartMedicine, quantity int) error {
	if quantity < 1 {
		s.notify(ctx, models.NoticeError, "Invalid quantity", "Quantity must be at least 1.")
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(medicine.ID); i >= 0 {
		s.lines[i].Medicine = medicine
		s.lines[i].Quantity += quantity
	} else {
		s.lines = append(s.lines, models.CartLine{Medicine: medicine, Quantity: quantity})
	}

	s.notify(ctx, models.NoticeSuccess, "Added to cart", fmt.Sprintf("%s was added to your cart.", medicine.Name))
	return s.persist(ctx)
}

// AdjustQuantity adds delta to the quantity of a line. A line reaching zero or less is removed.
// Unknown medicines are ignored.
func (s *Store) AdjustQuantity(ctx context.Context, medicineID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(medicineID)
	if i < 0 {
		return nil
	}

	next := make([]models.CartLine, 0, len(s.lines))
	for j, line := range s.lines {
		if j == i {
			line.Quantity += delta
			if line.Quantity <= 0 {
				continue
			}
		}
		next = append(next, line)
	}
	s.lines = next

	return s.persist(ctx)
}

// Remove drops the line of a medicine.
func (s *Store) Remove(ctx context.Context, medicineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(medicineID)
	if i < 0 {
		return nil
	}
	name := s.lines[i].Medicine.Name
	s.lines = append(s.lines[:i:i], s.lines[i+1:]...)

	s.notify(ctx, models.NoticeInfo, "Removed from cart", fmt.Sprintf("%s was removed from your cart.", name))
	return s.persist(ctx)
}

// Clear empties the cart and deletes its snapshot.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = []models.CartLine{}
	if err := s.storage.Remove(ctx, s.key); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPersist, s.key, err)
	}
	return nil
}

// TotalPrice sums price times quantity, counting lines without a price as free.
func (s *Store) TotalPrice() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalPrice(s.lines)
}

// TotalItems sums the quantities of all lines.
func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalItems(s.lines)
}

// Checkout hands the cart over to the payment flow.
func (s *Store) Checkout(ctx context.Context) (models.CheckoutResult, error) {
	s.mu.Lock()
	if len(s.lines) == 0 {
		s.mu.Unlock()
		s.notify(ctx, models.NoticeError, "Cart is empty", "Add medicines to your cart before checking out.")
		return models.CheckoutResult{}, ErrEmptyCart
	}

	if err := s.persist(ctx); err != nil {
		s.mu.Unlock()
		return models.CheckoutResult{}, err
	}

	result := models.CheckoutResult{
		Next:       PaymentPath,
		Lines:      copyLines(s.lines),
		TotalItems: totalItems(s.lines),
		TotalPrice: totalPrice(s.lines),
	}
	listeners := append([]CheckoutListener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		if err := l.CheckoutStarted(ctx, s.session, result); err != nil {
			s.logger.Warn("checkout listener failed", zap.String("key", s.key), zap.Error(err))
		}
	}

	s.logger.Info("checkout started",
		zap.String("key", s.key),
		zap.Int("items", result.TotalItems),
		zap.Float64("total", result.TotalPrice))
	return result, nil
}

// persist writes the full snapshot. Callers hold s.mu.
func (s *Store) persist(ctx context.Context) error {
	data, err := json.Marshal(s.lines)
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrPersist, err)
	}
	if err := s.storage.Save(ctx, s.key, data); err != nil {
		s.logger.Error("failed to persist cart", zap.String("key", s.key), zap.Error(err))
		return fmt.Errorf("%w: %s: %v", ErrPersist, s.key, err)
	}
	return nil
}

func (s *Store) notify(ctx context.Context, level models.NoticeLevel, title, description string) {
	s.notifier.Notify(ctx, models.Notice{Level: level, Title: title, Description: description})
}

// indexOf returns the line index of a medicine or -1. Callers hold s.mu.
func (s *Store) indexOf(medicineID string) int {
	for i := range s.lines {
		if s.lines[i].Medicine.ID == medicineID {
			return i
		}
	}
	return -1
}

// sanitize restores the line invariants on data read back from storage: positive quantities and
// one line per medicine.
func sanitize(lines []models.CartLine) []models.CartLine {
	out := make([]models.CartLine, 0, len(lines))
	seen := make(map[string]int, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 || line.Medicine.ID == "" {
			continue
		}
		if i, ok := seen[line.Medicine.ID]; ok {
			out[i].Quantity += line.Quantity
			continue
		}
		seen[line.Medicine.ID] = len(out)
		out = append(out, line)
	}
	return out
}

func copyLines(lines []models.CartLine) []models.CartLine {
	out := make([]models.CartLine, len(lines))
	copy(out, lines)
	for i := range out {
		if p := out[i].Medicine.Price; p != nil {
			price := *p
			out[i].Medicine.Price = &price
		}
	}
	return out
}

func totalPrice(lines []models.CartLine) float64 {
	var total float64
	for _, line := range lines {
		total += line.Subtotal()
	}
	return total
}

func totalItems(lines []models.CartLine) int {
	var count int
	for _, line := range lines {
		count += line.Quantity
	}
	return count
}
