package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the console.
type Metrics struct {
	SnapshotsApplied   *prometheus.CounterVec
	SnapshotsDiscarded *prometheus.CounterVec
	SubscriptionErrors *prometheus.CounterVec

	RegistrationsCreated  prometheus.Counter
	PresenceConfirmations prometheus.Counter
	DuplicateSearchHits   prometheus.Counter

	OrderTransitions    *prometheus.CounterVec
	RejectedTransitions prometheus.Counter

	BulkOperations   prometheus.Counter
	BulkFailures     prometheus.Counter
	BulkItemDuration prometheus.Histogram

	// Dashboard gauges, recomputed in full from the latest snapshot.
	OrdersTotal    prometheus.Gauge
	Revenue        prometheus.Gauge
	OrdersByStatus *prometheus.GaugeVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		SnapshotsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "atelier_snapshots_applied_total",
			Help: "Snapshots applied to a materialized view, per collection",
		}, []string{"collection"}),
		SnapshotsDiscarded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "atelier_snapshots_discarded_total",
			Help: "Snapshots discarded because their sequence was not newer than the last applied",
		}, []string{"collection"}),
		SubscriptionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "atelier_subscription_errors_total",
			Help: "Connectivity errors reported by subscriptions, per collection",
		}, []string{"collection"}),
		RegistrationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "atelier_registrations_created_total",
			Help: "Registrations created through the new-participant path",
		}),
		PresenceConfirmations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "atelier_presence_confirmations_total",
			Help: "Presence confirmations for existing registrations",
		}),
		DuplicateSearchHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "atelier_duplicate_search_hits_total",
			Help: "Dedup searches that matched more than one stored registration",
		}),
		OrderTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "atelier_order_transitions_total",
			Help: "Accepted order status transitions, by target status",
		}, []string{"target"}),
		RejectedTransitions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "atelier_order_transitions_rejected_total",
			Help: "Order status transitions rejected by the transition table",
		}),
		BulkOperations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "atelier_bulk_operations_total",
			Help: "Bulk operations executed over a selection",
		}),
		BulkFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "atelier_bulk_item_failures_total",
			Help: "Individual mutations that failed within bulk operations",
		}),
		BulkItemDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "atelier_bulk_item_duration_seconds",
			Help:    "Duration of individual mutations within bulk operations",
			Buckets: prometheus.DefBuckets,
		}),
		OrdersTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "atelier_orders_total",
			Help: "Orders visible in the latest snapshot",
		}),
		Revenue: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "atelier_orders_revenue",
			Help: "Revenue recomputed from order items in the latest snapshot",
		}),
		OrdersByStatus: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "atelier_orders_by_status",
			Help: "Orders in the latest snapshot, by status",
		}, []string{"status"}),
	}
}
