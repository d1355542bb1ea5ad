package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	GatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total number of requests dispatched by the gateway (count)",
		},
		[]string{"route", "outcome"},
	)

	GatewayUpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_upstream_duration_ms",
			Help:    "Duration of proxied backend calls in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"route", "status_class"},
	)

	FallbackUsageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_usage_total",
			Help: "Total number of times fallback responses were served (count)",
		},
		[]string{"route", "breaker", "reason"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	BrokerMessagesPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_messages_published_total",
			Help: "Total number of envelopes published (count)",
		},
		[]string{"service", "routing_key", "status"},
	)

	BrokerMessagesConsumedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_messages_consumed_total",
			Help: "Total number of envelopes consumed per queue (count)",
		},
		[]string{"service", "queue", "status"},
	)

	BrokerMessageSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "broker_message_size_bytes",
			Help:    "Size of broker messages in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
		[]string{"service", "direction"},
	)

	BrokerProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "broker_processing_duration_ms",
			Help:    "Handler duration per queue in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"service", "queue"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "queue"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages sent to DLQ (count)",
		},
		[]string{"service", "queue", "reason"},
	)

	OutboxEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_events_total",
			Help: "Outbox entries by delivery outcome (count)",
		},
		[]string{"routing_key", "status"},
	)

	OutboxPendingEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "outbox_pending_entries",
			Help: "Outbox entries still awaiting delivery at the last relay pass (count)",
		},
	)

	HubMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_mutations_total",
			Help: "Hub nested-collection mutations by operation and outcome (count)",
		},
		[]string{"operation", "status"},
	)

	HubVersionConflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_version_conflicts_total",
			Help: "Optimistic version conflicts on hub writes (count)",
		},
		[]string{"operation"},
	)

	PointsCreditsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "points_credits_total",
			Help: "Points credit outcomes (count)",
		},
		[]string{"service", "status"},
	)

	DatabaseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries (count)",
		},
		[]string{"service", "collection", "operation", "status"},
	)

	DatabaseQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_ms",
			Help:    "Duration of database queries in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "collection", "operation"},
	)
)

var (
	gatewayOnce  sync.Once
	brokerOnce   sync.Once
	databaseOnce sync.Once
	hubOnce      sync.Once
	outboxOnce   sync.Once
	pointsOnce   sync.Once
)

func RegisterGatewayMetrics() {
	gatewayOnce.Do(func() {
		prometheus.MustRegister(GatewayRequestsTotal)
		prometheus.MustRegister(GatewayUpstreamDuration)
		prometheus.MustRegister(FallbackUsageTotal)
		prometheus.MustRegister(CircuitBreakerState)
		prometheus.MustRegister(CircuitBreakerRequests)
		prometheus.MustRegister(CircuitBreakerFailures)
		prometheus.MustRegister(RateLimitRequestsTotal)
	})
}

func RegisterBrokerMetrics() {
	brokerOnce.Do(func() {
		prometheus.MustRegister(BrokerMessagesPublishedTotal)
		prometheus.MustRegister(BrokerMessagesConsumedTotal)
		prometheus.MustRegister(BrokerMessageSizeBytes)
		prometheus.MustRegister(BrokerProcessingDuration)
		prometheus.MustRegister(RetryAttemptsTotal)
		prometheus.MustRegister(DLQMessagesTotal)
	})
}

func RegisterDatabaseMetrics() {
	databaseOnce.Do(func() {
		prometheus.MustRegister(DatabaseQueriesTotal)
		prometheus.MustRegister(DatabaseQueryDuration)
	})
}

func RegisterHubMetrics() {
	hubOnce.Do(func() {
		prometheus.MustRegister(HubMutationsTotal)
		prometheus.MustRegister(HubVersionConflictsTotal)
	})
}

func RegisterOutboxMetrics() {
	outboxOnce.Do(func() {
		prometheus.MustRegister(OutboxEventsTotal)
		prometheus.MustRegister(OutboxPendingEntries)
	})
}

func RegisterPointsMetrics() {
	pointsOnce.Do(func() {
		prometheus.MustRegister(PointsCreditsTotal)
	})
}

func IncGatewayRequest(route, outcome string) {
	GatewayRequestsTotal.WithLabelValues(route, outcome).Inc()
}

func ObserveGatewayUpstream(route string, status int, duration time.Duration) {
	GatewayUpstreamDuration.WithLabelValues(route, statusClass(status)).Observe(float64(duration.Milliseconds()))
}

func IncFallback(route, breaker, reason string) {
	FallbackUsageTotal.WithLabelValues(route, breaker, reason).Inc()
}

func IncPublished(service, routingKey, status string, sizeBytes int) {
	BrokerMessagesPublishedTotal.WithLabelValues(service, routingKey, status).Inc()
	if sizeBytes > 0 {
		BrokerMessageSizeBytes.WithLabelValues(service, "out").Observe(float64(sizeBytes))
	}
}

func IncConsumed(service, queue, status string) {
	BrokerMessagesConsumedTotal.WithLabelValues(service, queue, status).Inc()
}

func ObserveProcessing(service, queue string, duration time.Duration) {
	BrokerProcessingDuration.WithLabelValues(service, queue).Observe(float64(duration.Milliseconds()))
}

func IncRetry(service, queue string) {
	RetryAttemptsTotal.WithLabelValues(service, queue).Inc()
}

func IncDLQ(service, queue, reason string) {
	DLQMessagesTotal.WithLabelValues(service, queue, reason).Inc()
}

func IncOutbox(routingKey, status string) {
	OutboxEventsTotal.WithLabelValues(routingKey, status).Inc()
}

func SetOutboxPending(count int) {
	OutboxPendingEntries.Set(float64(count))
}

func IncHubMutation(operation, status string) {
	HubMutationsTotal.WithLabelValues(operation, status).Inc()
}

func IncHubConflict(operation string) {
	HubVersionConflictsTotal.WithLabelValues(operation).Inc()
}

func IncPointsCredit(service, status string) {
	PointsCreditsTotal.WithLabelValues(service, status).Inc()
}

func IncDatabaseQuery(service, collection, operation, status string) {
	DatabaseQueriesTotal.WithLabelValues(service, collection, operation, status).Inc()
}

func ObserveDatabaseQueryDuration(service, collection, operation string, duration time.Duration) {
	DatabaseQueryDuration.WithLabelValues(service, collection, operation).Observe(float64(duration.Milliseconds()))
}

func statusClass(status int) string {
	switch {
	case status == 0:
		return "error"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
