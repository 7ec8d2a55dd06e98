// Package metrics exposes run counters on a private prometheus registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the service's counters with the prometheus registry they
// are registered on.
type Registry struct {
	reg *prometheus.Registry

	ImportsTotal         prometheus.Counter
	ImportRowsTotal      prometheus.Counter
	ImportWarningsTotal  prometheus.Counter
	MatchRunsTotal       prometheus.Counter
	MatchesCreatedTotal  prometheus.Counter
	MatchesUpdatedTotal  prometheus.Counter
	AggregationRunsTotal prometheus.Counter
	RecommendationsTotal prometheus.Counter
	PricesAppliedTotal   prometheus.Counter
}

// NewRegistry builds a registry with every counter registered.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	imports := prometheus.NewCounter(prometheus.CounterOpts{Name: "pricelens_imports_total"})
	importRows := prometheus.NewCounter(prometheus.CounterOpts{Name: "pricelens_import_rows_total"})
	importWarnings := prometheus.NewCounter(prometheus.CounterOpts{Name: "pricelens_import_warnings_total"})
	matchRuns := prometheus.NewCounter(prometheus.CounterOpts{Name: "pricelens_match_runs_total"})
	matchesCreated := prometheus.NewCounter(prometheus.CounterOpts{Name: "pricelens_matches_created_total"})
	matchesUpdated := prometheus.NewCounter(prometheus.CounterOpts{Name: "pricelens_matches_updated_total"})
	aggregationRuns := prometheus.NewCounter(prometheus.CounterOpts{Name: "pricelens_aggregation_runs_total"})
	recommendations := prometheus.NewCounter(prometheus.CounterOpts{Name: "pricelens_recommendations_total"})
	pricesApplied := prometheus.NewCounter(prometheus.CounterOpts{Name: "pricelens_prices_applied_total"})

	r.MustRegister(imports, importRows, importWarnings, matchRuns, matchesCreated,
		matchesUpdated, aggregationRuns, recommendations, pricesApplied)

	return &Registry{
		reg:                  r,
		ImportsTotal:         imports,
		ImportRowsTotal:      importRows,
		ImportWarningsTotal:  importWarnings,
		MatchRunsTotal:       matchRuns,
		MatchesCreatedTotal:  matchesCreated,
		MatchesUpdatedTotal:  matchesUpdated,
		AggregationRunsTotal: aggregationRuns,
		RecommendationsTotal: recommendations,
		PricesAppliedTotal:   pricesApplied,
	}
}

// Handler serves the registry in the prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
