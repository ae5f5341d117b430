// Package catalog keeps the in-memory medicine collection in sync with the medicine API and
// degrades to demo data or local records when the API rejects a request.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/pharmacy/internal/domain/models"
	"github.com/mamadbah2/pharmacy/internal/notify"
)

var (
	// ErrServiceRejected is returned when the medicine API answered with success=false on an
	// operation that has no local fallback.
	ErrServiceRejected = errors.New("medicine service rejected the request")

	// ErrNotFound indicates the medicine is not part of the collection.
	ErrNotFound = errors.New("medicine not found")
)

// API is the subset of the medicine API client the collection relies on.
type API interface {
	ListMedicines(ctx context.Context, filters models.MedicineFilters) (models.Envelope[models.MedicinePage], error)
	ListPharmacyMedicines(ctx context.Context, pharmacyID string, filters models.MedicineFilters) (models.Envelope[models.MedicinePage], error)
	CreateMedicine(ctx context.Context, input models.MedicineInput) (models.Envelope[models.Medicine], error)
	UpdateMedicine(ctx context.Context, id string, update models.MedicineUpdate) (models.Envelope[models.Medicine], error)
	DeleteMedicine(ctx context.Context, id string) (models.Envelope[json.RawMessage], error)
	UpdateStock(ctx context.Context, id string, stock int) (models.Envelope[models.Medicine], error)
}

// Status is the lifecycle position of the collection.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusPopulated Status = "populated"
	StatusError     Status = "error"
)

// State is a point-in-time copy of the collection.
type State struct {
	Medicines  []models.Medicine `json:"medicines"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	TotalPages int               `json:"totalPages"`
	Status     Status            `json:"status"`
	Loading    bool              `json:"loading"`
	Demo       bool              `json:"demo"`
	Error      string            `json:"error,omitempty"`
}

// Collection owns the medicine list shown by the storefront and the admin console. Besides the
// current listing it indexes every record it has seen by id, so lookups do not depend on which
// page or filter was fetched last.
type Collection struct {
	api      API
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time

	mu         sync.RWMutex
	medicines  []models.Medicine
	known      map[string]models.Medicine
	total      int
	page       int
	totalPages int
	status     Status
	demo       bool
	lastErr    string
	inflight   int
}

// maxInventoryPages bounds FetchInventory against a server that never reports the last page.
const maxInventoryPages = 200

// NewCollection builds an empty collection.
func NewCollection(api API, notifier notify.Notifier, logger *zap.Logger) *Collection {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.Nop
	}
	return &Collection{
		api:       api,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
		medicines: []models.Medicine{},
		known:     make(map[string]models.Medicine),
		status:    StatusIdle,
	}
}

// Snapshot returns a deep copy of the current state.
func (c *Collection) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stateLocked(c.inflight > 0)
}

// Get returns a medicine seen by any listing or mutation, whether or not it is part of the
// current listing.
func (c *Collection) Get(id string) (models.Medicine, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if m, ok := c.known[id]; ok {
		return m.Clone(), true
	}
	return models.Medicine{}, false
}

// FetchAll loads the medicines matching filters and returns the state this call applied. A
// rejected listing is replaced by the demo dataset and reported as success; a transport failure
// leaves the collection untouched.
func (c *Collection) FetchAll(ctx context.Context, filters models.MedicineFilters) (State, error) {
	defer c.begin()()

	env, err := c.api.ListMedicines(ctx, filters)
	if err != nil {
		return State{}, c.transportFailure(ctx, "fetch medicines", "Could not load medicines", err)
	}

	if !env.Success {
		demo := DemoMedicines()
		c.mu.Lock()
		c.medicines = demo
		c.total = len(demo)
		c.page = 1
		c.totalPages = 1
		c.demo = true
		for _, m := range demo {
			c.known[m.ID] = m.Clone()
		}
		c.settle()
		state := c.stateLocked(false)
		c.mu.Unlock()

		fallbackTotal.WithLabelValues("fetch").Inc()
		c.logger.Warn("medicine listing rejected, serving demo data", zap.String("reason", env.Reason()))
		c.notify(ctx, models.NoticeWarning, "Demo mode",
			"The medicine service is unavailable. Showing demonstration data.")
		return state, nil
	}

	state := c.replace(env.Data)
	c.notify(ctx, models.NoticeSuccess, "Medicines loaded",
		fmt.Sprintf("%d medicines available.", env.Data.Total))
	return state, nil
}

// FetchByOwner loads the medicines owned by one pharmacy. There is no demo fallback: a rejected
// listing is returned as ErrServiceRejected and the collection is left untouched.
func (c *Collection) FetchByOwner(ctx context.Context, pharmacyID string, filters models.MedicineFilters) (State, error) {
	if strings.TrimSpace(pharmacyID) == "" {
		err := fmt.Errorf("%w: pharmacy id is required", models.ErrInvalidMedicine)
		c.notify(ctx, models.NoticeError, "Invalid request", "A pharmacy must be selected.")
		return State{}, err
	}

	defer c.begin()()

	env, err := c.api.ListPharmacyMedicines(ctx, pharmacyID, filters)
	if err != nil {
		return State{}, c.transportFailure(ctx, "fetch pharmacy medicines", "Could not load pharmacy medicines", err)
	}
	if !env.Success {
		return State{}, c.rejected(ctx, "fetch pharmacy medicines", "Could not load pharmacy medicines", env.Reason())
	}

	state := c.replace(env.Data)
	c.notify(ctx, models.NoticeSuccess, "Medicines loaded",
		fmt.Sprintf("%d medicines for this pharmacy.", env.Data.Total))
	return state, nil
}

// Search is FetchAll with the free-text query merged into filters.
func (c *Collection) Search(ctx context.Context, query string, filters models.MedicineFilters) (State, error) {
	filters.Search = query
	return c.FetchAll(ctx, filters)
}

// FetchInventory walks every page of the unfiltered listing without touching the current listing.
// A rejected first page yields the demo dataset; a rejection past the first page is an error since
// the result would be partial.
func (c *Collection) FetchInventory(ctx context.Context) (State, error) {
	defer c.begin()()

	var (
		all   []models.Medicine
		total int
		pages = 1
	)
	for page := 1; page <= pages && page <= maxInventoryPages; page++ {
		env, err := c.api.ListMedicines(ctx, models.MedicineFilters{Page: page})
		if err != nil {
			return State{}, fmt.Errorf("fetch inventory page %d: %w", page, err)
		}
		if !env.Success {
			if page == 1 {
				demo := DemoMedicines()
				return State{Medicines: demo, Total: len(demo), Page: 1, TotalPages: 1, Status: StatusPopulated, Demo: true}, nil
			}
			return State{}, fmt.Errorf("fetch inventory page %d: %w: %s", page, ErrServiceRejected, env.Reason())
		}
		for _, m := range env.Data.Medicines {
			all = append(all, m.Clone())
		}
		total = env.Data.Total
		if env.Data.TotalPages > pages {
			pages = env.Data.TotalPages
		}
		if len(env.Data.Medicines) == 0 {
			break
		}
	}

	fetchedIDs := make(map[string]struct{}, len(all))
	for _, m := range all {
		fetchedIDs[m.ID] = struct{}{}
	}

	// Records kept on this device only are part of the inventory too.
	var local []models.Medicine
	c.mu.Lock()
	for _, m := range all {
		c.known[m.ID] = m.Clone()
	}
	for id, m := range c.known {
		if _, ok := fetchedIDs[id]; !ok && m.LocalOnly {
			local = append(local, m.Clone())
		}
	}
	c.mu.Unlock()

	slices.SortFunc(local, func(a, b models.Medicine) int { return strings.Compare(a.ID, b.ID) })
	all = append(all, local...)
	if all == nil {
		all = []models.Medicine{}
	}
	return State{Medicines: all, Total: total + len(local), Page: 1, TotalPages: pages, Status: StatusPopulated}, nil
}

// Create registers a medicine. When the API rejects it, the record is kept locally under a
// local-only identifier.
func (c *Collection) Create(ctx context.Context, input models.MedicineInput) (models.Medicine, error) {
	if err := models.ValidateInput(input); err != nil {
		c.notify(ctx, models.NoticeError, "Invalid medicine", err.Error())
		return models.Medicine{}, err
	}

	defer c.begin()()

	env, err := c.api.CreateMedicine(ctx, input)
	if err != nil {
		return models.Medicine{}, c.transportFailure(ctx, "create medicine", "Could not add medicine", err)
	}

	if !env.Success {
		now := c.now().UTC()
		record := input.ToMedicine(models.NewLocalID(now), now)
		record.LocalOnly = true

		c.mu.Lock()
		c.medicines = append(c.medicines, record.Clone())
		c.known[record.ID] = record.Clone()
		c.total++
		c.settle()
		c.mu.Unlock()

		fallbackTotal.WithLabelValues("create").Inc()
		c.logger.Warn("medicine creation rejected, kept locally",
			zap.String("id", record.ID), zap.String("reason", env.Reason()))
		c.notify(ctx, models.NoticeWarning, "Saved locally",
			fmt.Sprintf("%s was added on this device only.", record.Name))
		return record, nil
	}

	record := env.Data.Clone()
	c.mu.Lock()
	if i := c.indexOf(record.ID); i >= 0 {
		c.medicines[i] = record.Clone()
	} else {
		c.medicines = append(c.medicines, record.Clone())
		c.total++
	}
	c.known[record.ID] = record.Clone()
	c.settle()
	c.mu.Unlock()

	c.notify(ctx, models.NoticeSuccess, "Medicine added", fmt.Sprintf("%s was added.", record.Name))
	return record, nil
}

// Update applies a partial update. When the API rejects it, the update is merged into the local
// record instead.
func (c *Collection) Update(ctx context.Context, id string, update models.MedicineUpdate) (models.Medicine, error) {
	if err := models.ValidateUpdate(update); err != nil {
		c.notify(ctx, models.NoticeError, "Invalid medicine", err.Error())
		return models.Medicine{}, err
	}

	defer c.begin()()

	env, err := c.api.UpdateMedicine(ctx, id, update)
	if err != nil {
		return models.Medicine{}, c.transportFailure(ctx, "update medicine", "Could not update medicine", err)
	}

	if !env.Success {
		c.mu.Lock()
		current, ok := c.known[id]
		if !ok {
			c.mu.Unlock()
			c.notify(ctx, models.NoticeError, "Update failed", "This medicine is no longer listed.")
			return models.Medicine{}, fmt.Errorf("update medicine %s: %w", id, ErrNotFound)
		}
		merged := update.Apply(current)
		if err := models.ValidateMedicine(merged); err != nil {
			c.mu.Unlock()
			c.notify(ctx, models.NoticeError, "Invalid medicine", err.Error())
			return models.Medicine{}, err
		}
		merged.UpdatedAt = c.now().UTC()
		merged.LocalOnly = true
		c.store(merged)
		c.settle()
		c.mu.Unlock()

		fallbackTotal.WithLabelValues("update").Inc()
		c.logger.Warn("medicine update rejected, merged locally",
			zap.String("id", id), zap.String("reason", env.Reason()))
		c.notify(ctx, models.NoticeWarning, "Updated locally",
			fmt.Sprintf("Changes to %s are saved on this device only.", merged.Name))
		return merged, nil
	}

	c.mu.Lock()
	record := env.Data.Clone()
	if record.ID == "" {
		// Accepted without echoing the record: apply the update to what we know of it.
		base, ok := c.known[id]
		if !ok {
			base = models.Medicine{ID: id}
		}
		record = update.Apply(base)
		record.ID = id
		record.UpdatedAt = c.now().UTC()
	}
	c.store(record)
	c.settle()
	c.mu.Unlock()

	c.notify(ctx, models.NoticeSuccess, "Medicine updated", fmt.Sprintf("%s was updated.", displayName(record)))
	return record, nil
}

// Delete removes a medicine. Both an accepted and a rejected deletion remove the record
// locally; only a transport failure keeps it.
func (c *Collection) Delete(ctx context.Context, id string) error {
	defer c.begin()()

	env, err := c.api.DeleteMedicine(ctx, id)
	if err != nil {
		return c.transportFailure(ctx, "delete medicine", "Could not delete medicine", err)
	}

	c.mu.Lock()
	if i := c.indexOf(id); i >= 0 {
		c.medicines = append(c.medicines[:i:i], c.medicines[i+1:]...)
	}
	delete(c.known, id)
	if c.total > 0 {
		c.total--
	}
	c.settle()
	c.mu.Unlock()

	if !env.Success {
		fallbackTotal.WithLabelValues("delete").Inc()
		c.logger.Warn("medicine deletion rejected, removed locally",
			zap.String("id", id), zap.String("reason", env.Reason()))
		c.notify(ctx, models.NoticeWarning, "Removed locally", "The medicine was removed on this device only.")
		return nil
	}

	c.notify(ctx, models.NoticeSuccess, "Medicine deleted", "The medicine was removed.")
	return nil
}

// UpdateStock sets the stock of a medicine. A rejected update is returned as ErrServiceRejected.
func (c *Collection) UpdateStock(ctx context.Context, id string, stock int) error {
	if stock < 0 {
		err := fmt.Errorf("%w: stock must be greater than or equal to 0", models.ErrInvalidMedicine)
		c.notify(ctx, models.NoticeError, "Invalid stock", "Stock cannot be negative.")
		return err
	}

	defer c.begin()()

	env, err := c.api.UpdateStock(ctx, id, stock)
	if err != nil {
		return c.transportFailure(ctx, "update stock", "Could not update stock", err)
	}
	if !env.Success {
		return c.rejected(ctx, "update stock", "Could not update stock", env.Reason())
	}

	c.mu.Lock()
	if m, ok := c.known[id]; ok {
		m.Stock = stock
		if !env.Data.UpdatedAt.IsZero() {
			m.UpdatedAt = env.Data.UpdatedAt
		}
		c.store(m)
	}
	c.settle()
	c.mu.Unlock()

	c.notify(ctx, models.NoticeSuccess, "Stock updated", fmt.Sprintf("Stock set to %d.", stock))
	return nil
}

// begin marks a network call in flight and returns the matching release.
func (c *Collection) begin() func() {
	c.mu.Lock()
	c.inflight++
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.inflight--
		c.mu.Unlock()
	}
}

func (c *Collection) replace(page models.MedicinePage) State {
	meds := make([]models.Medicine, 0, len(page.Medicines))
	for _, m := range page.Medicines {
		meds = append(meds, m.Clone())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.demo {
		for _, m := range DemoMedicines() {
			delete(c.known, m.ID)
		}
	}
	for _, m := range meds {
		c.known[m.ID] = m.Clone()
	}
	c.medicines = meds
	c.total = page.Total
	c.page = page.Page
	c.totalPages = page.TotalPages
	c.demo = false
	c.settle()
	return c.stateLocked(false)
}

// store writes a record to the index and to the current listing if it is part of it. Callers
// hold c.mu.
func (c *Collection) store(m models.Medicine) {
	c.known[m.ID] = m.Clone()
	if i := c.indexOf(m.ID); i >= 0 {
		c.medicines[i] = m.Clone()
	}
}

// stateLocked copies the current state. Callers hold c.mu.
func (c *Collection) stateLocked(loading bool) State {
	meds := make([]models.Medicine, len(c.medicines))
	for i, m := range c.medicines {
		meds[i] = m.Clone()
	}
	status := c.status
	if loading {
		status = StatusLoading
	}
	return State{
		Medicines:  meds,
		Total:      c.total,
		Page:       c.page,
		TotalPages: c.totalPages,
		Status:     status,
		Loading:    loading,
		Demo:       c.demo,
		Error:      c.lastErr,
	}
}

// settle records a completed operation. Callers hold c.mu.
func (c *Collection) settle() {
	c.status = StatusPopulated
	c.lastErr = ""
}

func (c *Collection) transportFailure(ctx context.Context, op, title string, err error) error {
	c.mu.Lock()
	c.status = StatusError
	c.lastErr = err.Error()
	c.mu.Unlock()

	c.logger.Error("medicine api call failed", zap.String("operation", op), zap.Error(err))
	c.notify(ctx, models.NoticeError, title, "The medicine service could not be reached. Please try again.")
	return fmt.Errorf("%s: %w", op, err)
}

func (c *Collection) rejected(ctx context.Context, op, title, reason string) error {
	c.mu.Lock()
	c.status = StatusError
	c.lastErr = reason
	c.mu.Unlock()

	c.logger.Warn("medicine api rejected request", zap.String("operation", op), zap.String("reason", reason))
	c.notify(ctx, models.NoticeError, title, reason)
	return fmt.Errorf("%s: %w: %s", op, ErrServiceRejected, reason)
}

func (c *Collection) notify(ctx context.Context, level models.NoticeLevel, title, description string) {
	c.notifier.Notify(ctx, models.Notice{Level: level, Title: title, Description: description})
}

func displayName(m models.Medicine) string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}

// indexOf returns the position of id or -1. Callers hold c.mu.
func (c *Collection) indexOf(id string) int {
	for i := range c.medicines {
		if c.medicines[i].ID == id {
			return i
		}
	}
	return -1
}
