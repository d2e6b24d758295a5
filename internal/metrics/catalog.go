package metrics

import "github.com/prometheus/client_golang/prometheus"

// Catalog metrics.
var (
	AutocompleteQueriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "assetlend",
		Name:      "autocomplete_queries_total",
		Help:      "Autocomplete lookups that reached the item store",
	})

	AutocompleteEmptyTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "assetlend",
		Name:      "autocomplete_empty_total",
		Help:      "Autocomplete lookups that returned no suggestion",
	})

	AutocompleteRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assetlend",
			Name:      "autocomplete_rejected_total",
			Help:      "Autocomplete requests rejected before lookup",
		},
		[]string{"reason"}, // "nonce" / "rate"
	)

	SeededTermsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assetlend",
			Name:      "seeded_terms_total",
			Help:      "Default vocabulary terms created by the seeder",
		},
		[]string{"taxonomy"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(AutocompleteQueriesTotal)
	prometheus.MustRegister(AutocompleteEmptyTotal)
	prometheus.MustRegister(AutocompleteRejectedTotal)
	prometheus.MustRegister(SeededTermsTotal)
}
