package medicines

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/mamadbah2/pharmacy/internal/config"
	"github.com/mamadbah2/pharmacy/internal/domain/models"
)

// Client exposes the medicine API operations used by the catalog.
//
// A returned error means the call failed in transit (unreachable host, timeout, unreadable payload).
// A reply the service rejected, or a call refused by the open circuit breaker, comes back as an
// envelope with Success false and a nil error.
type Client interface {
	ListMedicines(ctx context.Context, filters models.MedicineFilters) (models.Envelope[models.MedicinePage], error)
	ListPharmacyMedicines(ctx context.Context, pharmacyID string, filters models.MedicineFilters) (models.Envelope[models.MedicinePage], error)
	CreateMedicine(ctx context.Context, input models.MedicineInput) (models.Envelope[models.Medicine], error)
	UpdateMedicine(ctx context.Context, id string, update models.MedicineUpdate) (models.Envelope[models.Medicine], error)
	DeleteMedicine(ctx context.Context, id string) (models.Envelope[json.RawMessage], error)
	UpdateStock(ctx context.Context, id string, stock int) (models.Envelope[models.Medicine], error)
}

// errServerStatus marks 5xx replies so the breaker counts them as failures.
var errServerStatus = errors.New("medicine api server error")

// APIClient is a resty-backed implementation of Client guarded by a circuit breaker.
type APIClient struct {
	httpClient *resty.Client
	breaker    *gobreaker.CircuitBreaker[struct{}]
	logger     *zap.Logger
}

// NewClient builds a medicine API client from configuration.
func NewClient(cfg config.MedicineAPIConfig, logger *zap.Logger) *APIClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	restyClient := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout)
	if cfg.Token != "" {
		restyClient.SetAuthToken(cfg.Token)
	}

	minRequests := cfg.BreakerMinRequests
	ratio := cfg.BreakerFailureRatio
	settings := gobreaker.Settings{
		Name:        "medicine-api",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			breakerState.Set(stateValue(to))
		},
	}
	breakerState.Set(0)

	return &APIClient{
		httpClient: restyClient,
		breaker:    gobreaker.NewCircuitBreaker[struct{}](settings),
		logger:     logger,
	}
}

// ListMedicines fetches a page of medicines matching filters.
func (c *APIClient) ListMedicines(ctx context.Context, filters models.MedicineFilters) (models.Envelope[models.MedicinePage], error) {
	return call[models.MedicinePage](ctx, c, "list", http.MethodGet, "/medicines", filters.Query(), nil)
}

// ListPharmacyMedicines fetches the medicines owned by one pharmacy.
func (c *APIClient) ListPharmacyMedicines(ctx context.Context, pharmacyID string, filters models.MedicineFilters) (models.Envelope[models.MedicinePage], error) {
	path := "/pharmacies/" + url.PathEscape(pharmacyID) + "/medicines"
	return call[models.MedicinePage](ctx, c, "list_pharmacy", http.MethodGet, path, filters.Query(), nil)
}

// CreateMedicine registers a new medicine.
func (c *APIClient) CreateMedicine(ctx context.Context, input models.MedicineInput) (models.Envelope[models.Medicine], error) {
	return call[models.Medicine](ctx, c, "create", http.MethodPost, "/medicines", nil, input)
}

// UpdateMedicine applies a partial update.
func (c *APIClient) UpdateMedicine(ctx context.Context, id string, update models.MedicineUpdate) (models.Envelope[models.Medicine], error) {
	return call[models.Medicine](ctx, c, "update", http.MethodPut, "/medicines/"+url.PathEscape(id), nil, update)
}

// DeleteMedicine removes a medicine.
func (c *APIClient) DeleteMedicine(ctx context.Context, id string) (models.Envelope[json.RawMessage], error) {
	return call[json.RawMessage](ctx, c, "delete", http.MethodDelete, "/medicines/"+url.PathEscape(id), nil, nil)
}

// UpdateStock sets the stock of a medicine.
func (c *APIClient) UpdateStock(ctx context.Context, id string, stock int) (models.Envelope[models.Medicine], error) {
	body := map[string]int{"stock": stock}
	return call[models.Medicine](ctx, c, "update_stock", http.MethodPatch, "/medicines/"+url.PathEscape(id)+"/stock", nil, body)
}

func call[T any](ctx context.Context, c *APIClient, op, method, path string, query url.Values, body any) (models.Envelope[T], error) {
	env := new(models.Envelope[T])
	var resp *resty.Response

	_, err := c.breaker.Execute(func() (struct{}, error) {
		req := c.httpClient.R().
			SetContext(ctx).
			SetResult(env).
			SetError(env)
		if len(query) > 0 {
			req.SetQueryParamsFromValues(query)
		}
		if body != nil {
			req.SetBody(body)
		}

		var err error
		resp, err = req.Execute(method, path)
		if err != nil {
			return struct{}{}, err
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return struct{}{}, errServerStatus
		}
		return struct{}{}, nil
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		requestsTotal.WithLabelValues(op, "unavailable").Inc()
		c.logger.Warn("medicine api unavailable", zap.String("operation", op), zap.Error(err))
		return models.Envelope[T]{Error: "medicine service unavailable"}, nil
	case errors.Is(err, errServerStatus):
		// the reply is still decoded below
	case err != nil:
		requestsTotal.WithLabelValues(op, "transport_error").Inc()
		return models.Envelope[T]{}, fmt.Errorf("%s %s: %w", method, path, err)
	}

	if resp.IsError() {
		env.Success = false
		if env.Error == "" && env.Message == "" {
			env.Error = fmt.Sprintf("medicine api returned status %d", resp.StatusCode())
		}
	}

	if env.Success {
		requestsTotal.WithLabelValues(op, "success").Inc()
	} else {
		requestsTotal.WithLabelValues(op, "rejected").Inc()
		c.logger.Debug("medicine api rejected request",
			zap.String("operation", op),
			zap.Int("status", resp.StatusCode()),
			zap.String("reason", env.Reason()))
	}

	return *env, nil
}
