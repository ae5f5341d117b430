package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/pharmacy/internal/catalog"
	"github.com/mamadbah2/pharmacy/internal/config"
	"github.com/mamadbah2/pharmacy/internal/domain/models"
	"github.com/mamadbah2/pharmacy/internal/notify"
)

const jobTimeout = 2 * time.Minute

// CatalogRefresher reloads the shared catalog.
type CatalogRefresher interface {
	FetchAll(ctx context.Context, filters models.MedicineFilters) (catalog.State, error)
}

// InventoryExporter produces and stores the inventory report.
type InventoryExporter interface {
	Enabled() bool
	Export(ctx context.Context) (string, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	catalog  CatalogRefresher
	reports  InventoryExporter
	sender   notify.TextSender
	cfg      config.Config
	logger   *zap.Logger
	location *time.Location
}

// NewScheduler creates a new scheduler instance. reports and sender may be nil.
func NewScheduler(cfg config.Config, catalog CatalogRefresher, reports InventoryExporter, sender notify.TextSender, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	location, err := time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Reporting.Timezone, err)
	}

	// Standard 5 field parser: min, hour, dom, month, dow.
	c := cron.New(cron.WithLocation(location))

	return &Scheduler{
		cron:     c,
		catalog:  catalog,
		reports:  reports,
		sender:   sender,
		cfg:      cfg,
		logger:   logger,
		location: location,
	}, nil
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("timezone", s.location.String()))

	if _, err := s.cron.AddFunc(s.cfg.Reporting.RefreshSchedule, s.refreshCatalog); err != nil {
		return fmt.Errorf("schedule catalog refresh: %w", err)
	}

	if s.reports != nil && s.reports.Enabled() {
		if _, err := s.cron.AddFunc(s.cfg.Reporting.CronSchedule, s.exportInventory); err != nil {
			return fmt.Errorf("schedule inventory report: %w", err)
		}
	} else {
		s.logger.Info("inventory report disabled, no export sink configured")
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) refreshCatalog() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	state, err := s.catalog.FetchAll(ctx, models.MedicineFilters{})
	if err != nil {
		s.logger.Warn("scheduled catalog refresh failed", zap.Error(err))
		return
	}
	s.logger.Debug("catalog refreshed", zap.Int("medicines", len(state.Medicines)), zap.Bool("demo", state.Demo))
}

func (s *Scheduler) exportInventory() {
	s.logger.Info("generating inventory report")
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	summary, err := s.reports.Export(ctx)
	if err != nil {
		s.logger.Error("failed to export inventory report", zap.Error(err))
	}
	if summary == "" || s.sender == nil || s.cfg.WhatsApp.PharmacyPhone == "" {
		return
	}

	if _, err := s.sender.SendText(ctx, s.cfg.WhatsApp.PharmacyPhone, summary); err != nil {
		s.logger.Error("failed to send inventory summary", zap.Error(err))
	} else {
		s.logger.Info("inventory summary sent successfully")
	}
}
