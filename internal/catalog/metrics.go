package catalog

import "github.com/prometheus/client_golang/prometheus"

var fallbackTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pharmacy_catalog_fallback_total",
		Help: "Operations served from demo data or local synthesis because the medicine API rejected them",
	},
	[]string{"operation"},
)

func init() {
	prometheus.MustRegister(fallbackTotal)
}
