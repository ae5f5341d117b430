package medicines

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pharmacy_medicine_api_requests_total",
			Help: "Medicine API calls by operation and outcome (success, rejected, unavailable, transport_error)",
		},
		[]string{"operation", "outcome"},
	)

	breakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pharmacy_medicine_api_breaker_state",
			Help: "Circuit breaker state of the medicine API client (0=closed, 1=half-open, 2=open)",
		},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, breakerState)
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
