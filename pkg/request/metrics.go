package request

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	executionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokedex_executions_total",
		Help: "Total executor calls by result (success, error, cancelled)",
	}, []string{"result"})

	supersessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pokedex_supersessions_total",
		Help: "Total in-flight calls cancelled by a newer call on the same binding",
	})
)
