package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/pharmacy/internal/catalog"
	"github.com/mamadbah2/pharmacy/internal/config"
	"github.com/mamadbah2/pharmacy/internal/domain/models"
)

type fakeCatalog struct {
	calls   int
	filters models.MedicineFilters
	err     error
}

func (f *fakeCatalog) FetchAll(_ context.Context, filters models.MedicineFilters) (catalog.State, error) {
	f.calls++
	f.filters = filters
	if f.err != nil {
		return catalog.State{}, f.err
	}
	return catalog.State{Status: catalog.StatusPopulated}, nil
}

type fakeExporter struct {
	enabled bool
	summary string
	err     error
	calls   int
}

func (f *fakeExporter) Enabled() bool { return f.enabled }

func (f *fakeExporter) Export(context.Context) (string, error) {
	f.calls++
	return f.summary, f.err
}

type fakeSender struct {
	to, body string
	calls    int
}

func (f *fakeSender) SendText(_ context.Context, to, body string) (string, error) {
	f.calls++
	f.to, f.body = to, body
	return "wamid.1", nil
}

func testConfig() config.Config {
	return config.Config{
		Reporting: config.ReportingConfig{
			CronSchedule:    "0 20 * * *",
			RefreshSchedule: "*/15 * * * *",
			Timezone:        "Africa/Conakry",
		},
		WhatsApp: config.WhatsAppConfig{PharmacyPhone: "224600000000"},
	}
}

func TestNewScheduler_InvalidTimezone(t *testing.T) {
	cfg := testConfig()
	cfg.Reporting.Timezone = "Mars/Olympus"
	_, err := NewScheduler(cfg, &fakeCatalog{}, nil, nil, nil)
	assert.Error(t, err)
}

func TestStart_RegistersJobs(t *testing.T) {
	tests := []struct {
		name     string
		exporter InventoryExporter
		want     int
	}{
		{"refresh only", nil, 1},
		{"exporter disabled", &fakeExporter{enabled: false}, 1},
		{"refresh and report", &fakeExporter{enabled: true}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewScheduler(testConfig(), &fakeCatalog{}, tt.exporter, nil, nil)
			require.NoError(t, err)
			require.NoError(t, s.Start())
			defer s.Stop()
			assert.Equal(t, tt.want, s.Jobs())
		})
	}
}

func TestStart_InvalidSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.Reporting.RefreshSchedule = "every now and then"
	s, err := NewScheduler(cfg, &fakeCatalog{}, nil, nil, nil)
	require.NoError(t, err)
	assert.Error(t, s.Start())
}

func TestRefreshCatalog(t *testing.T) {
	cat := &fakeCatalog{err: errors.New("down")}
	s, err := NewScheduler(testConfig(), cat, nil, nil, nil)
	require.NoError(t, err)

	s.refreshCatalog()
	assert.Equal(t, 1, cat.calls)
	assert.Equal(t, models.MedicineFilters{}, cat.filters)
}

func TestExportInventory_SendsSummary(t *testing.T) {
	exporter := &fakeExporter{enabled: true, summary: "Inventory: 4 medicines"}
	sender := &fakeSender{}
	s, err := NewScheduler(testConfig(), &fakeCatalog{}, exporter, sender, nil)
	require.NoError(t, err)

	s.exportInventory()
	assert.Equal(t, 1, exporter.calls)
	assert.Equal(t, "224600000000", sender.to)
	assert.Equal(t, "Inventory: 4 medicines", sender.body)
}

func TestExportInventory_NoSummaryNoMessage(t *testing.T) {
	exporter := &fakeExporter{enabled: true, err: errors.New("mongo down")}
	sender := &fakeSender{}
	s, err := NewScheduler(testConfig(), &fakeCatalog{}, exporter, sender, nil)
	require.NoError(t, err)

	s.exportInventory()
	assert.Zero(t, sender.calls)
}
