package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/pharmacy/internal/catalog"
	"github.com/mamadbah2/pharmacy/internal/domain/models"
)

// Catalog is the medicine collection the handlers operate on.
type Catalog interface {
	Get(id string) (models.Medicine, bool)
	FetchAll(ctx context.Context, filters models.MedicineFilters) (catalog.State, error)
	FetchByOwner(ctx context.Context, pharmacyID string, filters models.MedicineFilters) (catalog.State, error)
	Search(ctx context.Context, query string, filters models.MedicineFilters) (catalog.State, error)
	Create(ctx context.Context, input models.MedicineInput) (models.Medicine, error)
	Update(ctx context.Context, id string, update models.MedicineUpdate) (models.Medicine, error)
	Delete(ctx context.Context, id string) error
	UpdateStock(ctx context.Context, id string, stock int) error
}

// MedicineHandler exposes the medicine catalog over HTTP.
type MedicineHandler struct {
	catalog Catalog
	logger  *zap.Logger
}

// NewMedicineHandler constructs the HTTP handler adapter.
func NewMedicineHandler(catalog Catalog, logger *zap.Logger) *MedicineHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MedicineHandler{catalog: catalog, logger: logger}
}

type stockRequest struct {
	Stock *int `json:"stock" binding:"required"`
}

// List loads the catalog with the query filters and returns the page it fetched.
func (h *MedicineHandler) List(c *gin.Context) {
	filters, ok := h.bindFilters(c)
	if !ok {
		return
	}
	state, err := h.catalog.FetchAll(c.Request.Context(), filters)
	if err != nil {
		respondError(c, statusFor(err), err.Error())
		return
	}
	respond(c, http.StatusOK, state)
}

// Search runs a free-text search given by the q parameter.
func (h *MedicineHandler) Search(c *gin.Context) {
	filters, ok := h.bindFilters(c)
	if !ok {
		return
	}
	state, err := h.catalog.Search(c.Request.Context(), c.Query("q"), filters)
	if err != nil {
		respondError(c, statusFor(err), err.Error())
		return
	}
	respond(c, http.StatusOK, state)
}

// ListByPharmacy loads the medicines of one pharmacy.
func (h *MedicineHandler) ListByPharmacy(c *gin.Context) {
	filters, ok := h.bindFilters(c)
	if !ok {
		return
	}
	state, err := h.catalog.FetchByOwner(c.Request.Context(), c.Param("id"), filters)
	if err != nil {
		respondError(c, statusFor(err), err.Error())
		return
	}
	respond(c, http.StatusOK, state)
}

// Get returns one medicine the catalog has seen.
func (h *MedicineHandler) Get(c *gin.Context) {
	medicine, ok := h.catalog.Get(c.Param("id"))
	if !ok {
		respondError(c, http.StatusNotFound, catalog.ErrNotFound.Error())
		return
	}
	respond(c, http.StatusOK, medicine)
}

// Create registers a medicine.
func (h *MedicineHandler) Create(c *gin.Context) {
	var input models.MedicineInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.Debug("invalid medicine payload", zap.Error(err))
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	medicine, err := h.catalog.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, statusFor(err), err.Error())
		return
	}
	respond(c, http.StatusCreated, medicine)
}

// Update applies a partial update.
func (h *MedicineHandler) Update(c *gin.Context) {
	var update models.MedicineUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		h.logger.Debug("invalid medicine update", zap.Error(err))
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	medicine, err := h.catalog.Update(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		respondError(c, statusFor(err), err.Error())
		return
	}
	respond(c, http.StatusOK, medicine)
}

// Delete removes a medicine.
func (h *MedicineHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.catalog.Delete(c.Request.Context(), id); err != nil {
		respondError(c, statusFor(err), err.Error())
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id})
}

// UpdateStock sets the stock of a medicine.
func (h *MedicineHandler) UpdateStock(c *gin.Context) {
	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "stock is required")
		return
	}

	id := c.Param("id")
	if err := h.catalog.UpdateStock(c.Request.Context(), id, *req.Stock); err != nil {
		respondError(c, statusFor(err), err.Error())
		return
	}

	if medicine, ok := h.catalog.Get(id); ok {
		respond(c, http.StatusOK, medicine)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id, "stock": *req.Stock})
}

func (h *MedicineHandler) bindFilters(c *gin.Context) (models.MedicineFilters, bool) {
	var filters models.MedicineFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		h.logger.Debug("invalid medicine filters", zap.Error(err))
		respondError(c, http.StatusBadRequest, "invalid filters")
		return filters, false
	}
	return filters, true
}
