package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/pharmacy/internal/catalog"
	"github.com/mamadbah2/pharmacy/internal/domain/models"
	"github.com/mamadbah2/pharmacy/internal/repository/mongodb"
	"github.com/mamadbah2/pharmacy/internal/repository/sheets"
)

const (
	dateLayout         = "2006-01-02 15:04"
	inventoryDataRange = "Inventory!A:G"
)

// CatalogSource loads the full inventory to report on, independent of any listing in progress.
type CatalogSource interface {
	FetchInventory(ctx context.Context) (catalog.State, error)
}

// Service builds inventory reports from the catalog and exports them.
type Service struct {
	source    CatalogSource
	sheets    sheets.Repository
	reports   mongodb.ReportRepository
	threshold int
	location  *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

// NewService wires a new reporting service instance. Either sink may be nil.
func NewService(source CatalogSource, sheetRepo sheets.Repository, reportRepo mongodb.ReportRepository, threshold int, location *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	return &Service{
		source:    source,
		sheets:    sheetRepo,
		reports:   reportRepo,
		threshold: threshold,
		location:  location,
		now:       time.Now,
		logger:    logger,
	}
}

// Enabled reports whether at least one export sink is configured.
func (s *Service) Enabled() bool {
	return s.sheets != nil || s.reports != nil
}

// BuildInventoryReport aggregates the stock picture of a catalog state.
func BuildInventoryReport(state catalog.State, threshold int, now time.Time) models.InventoryReport {
	report := models.InventoryReport{
		GeneratedAt:   now,
		Medicines:     len(state.Medicines),
		LowStock:      []string{},
		OutOfStock:    []string{},
		DemoData:      state.Demo,
		LowStockLimit: threshold,
	}

	for _, m := range state.Medicines {
		report.TotalUnits += m.Stock
		report.StockValue += m.Price * float64(m.Stock)
		switch {
		case m.Stock <= 0:
			report.OutOfStock = append(report.OutOfStock, m.ID)
		case m.Stock <= threshold:
			report.LowStock = append(report.LowStock, m.ID)
		}
		if m.LocalOnly {
			report.LocalOnly++
		}
	}

	return report
}

// Summary renders the report as a single line.
func Summary(report models.InventoryReport) string {
	line := fmt.Sprintf("Inventory (%s): %d medicines, %d units, stock value %.2f, %d low, %d out of stock.",
		report.GeneratedAt.Format(dateLayout), report.Medicines, report.TotalUnits, report.StockValue,
		len(report.LowStock), len(report.OutOfStock))
	if report.DemoData {
		line += " Demo data, medicine service unreachable."
	}
	return line
}

// Export loads every page of the inventory, appends one sheet row per medicine and stores the
// summary. Demo catalogs are stored but never written to the sheet. Failures of one sink do not
// stop the other.
func (s *Service) Export(ctx context.Context) (string, error) {
	state, err := s.source.FetchInventory(ctx)
	if err != nil {
		s.logger.Error("inventory unavailable", zap.Error(err))
		return "", fmt.Errorf("load inventory: %w", err)
	}
	report := BuildInventoryReport(state, s.threshold, s.now().In(s.location))

	var errs []error

	if s.sheets != nil && !report.DemoData {
		if err := s.sheets.WriteRows(ctx, inventoryDataRange, inventoryRows(report.GeneratedAt, state.Medicines)); err != nil {
			errs = append(errs, fmt.Errorf("export inventory rows: %w", err))
		}
	}

	if s.reports != nil {
		if err := s.reports.SaveInventoryReport(ctx, report); err != nil {
			errs = append(errs, fmt.Errorf("save inventory report: %w", err))
		}
	}

	summary := Summary(report)
	if err := errors.Join(errs...); err != nil {
		s.logger.Error("inventory export incomplete", zap.Error(err))
		return summary, err
	}

	s.logger.Info("inventory exported",
		zap.Int("medicines", report.Medicines),
		zap.Int("low_stock", len(report.LowStock)),
		zap.Int("out_of_stock", len(report.OutOfStock)))
	return summary, nil
}

func inventoryRows(at time.Time, medicines []models.Medicine) [][]interface{} {
	rows := make([][]interface{}, 0, len(medicines))
	stamp := at.Format(dateLayout)
	for _, m := range medicines {
		rows = append(rows, []interface{}{stamp, m.ID, m.Name, m.Category, m.PharmacyID, m.Price, m.Stock})
	}
	return rows
}
