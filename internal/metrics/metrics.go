// Package metrics provides Prometheus observability metrics for the
// dashboard backend: refresh pipeline health, upstream API behavior,
// planner activity and websocket fan-out.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the custom prometheus registry for our application
var Registry = prometheus.NewRegistry()

// factory allows us to register metrics to our custom Registry directly
var factory = promauto.With(Registry)

// RefreshCyclesTotal counts completed refresh cycles by trigger and outcome.
var RefreshCyclesTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "dashboard",
	Name:      "refresh_cycles_total",
	Help:      "Completed refresh cycles by trigger (timer, manual) and result",
}, []string{"trigger", "result"})

// RefreshDurationSeconds tracks the full fetch-and-aggregate pipeline time.
var RefreshDurationSeconds = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "dashboard",
	Name:      "refresh_duration_seconds",
	Help:      "Time taken by one full fetch-and-aggregate refresh",
	Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
})

// RefreshesDiscardedTotal counts refreshes whose results were thrown away
// because a newer refresh finished first.
var RefreshesDiscardedTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "dashboard",
	Name:      "refreshes_discarded_total",
	Help:      "Refresh results discarded because a newer cycle already completed",
})

// ConversationsAggregatedTotal counts conversations folded into snapshots.
var ConversationsAggregatedTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "dashboard",
	Name:      "conversations_aggregated_total",
	Help:      "Total conversation records folded into dashboard snapshots",
})

// UpstreamErrorsTotal counts upstream query failures by endpoint.
var UpstreamErrorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "upstream",
	Name:      "errors_total",
	Help:      "Upstream API failures by endpoint",
}, []string{"endpoint"})

// PlannerUploadsTotal counts workbook uploads by result.
var PlannerUploadsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "planner",
	Name:      "uploads_total",
	Help:      "Workbook uploads by result",
}, []string{"result"})

// PlannerScenariosTotal counts applied staffing scenarios.
var PlannerScenariosTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "planner",
	Name:      "scenarios_total",
	Help:      "Staffing scenarios applied",
})

// PlannerExportsTotal counts workbook exports.
var PlannerExportsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "planner",
	Name:      "exports_total",
	Help:      "Staffing plan workbook exports",
})

// WebsocketConnections tracks currently connected dashboard clients.
var WebsocketConnections = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "dashboard",
	Name:      "websocket_connections",
	Help:      "Currently connected websocket clients",
})
