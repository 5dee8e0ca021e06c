package aggregate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	placeholdersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pokedex_enrichment_placeholders_total",
		Help: "Total list items replaced by placeholders after a failed detail fetch",
	})

	colorFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokedex_color_fallbacks_total",
		Help: "Total detail views that fell back to default colours, by reason",
	}, []string{"reason"})

	chainFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokedex_chain_failures_total",
		Help: "Total fatal detail chain failures by step",
	}, []string{"step"})
)
