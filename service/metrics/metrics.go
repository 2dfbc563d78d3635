package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the bot.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Solana RPC Metrics
	solanaRPCCallsTotal        *prometheus.CounterVec
	solanaRPCCallDuration      *prometheus.HistogramVec
	solanaRPCSignaturesPerCall *prometheus.HistogramVec

	// Poll loop metrics
	pollCyclesTotal     *prometheus.CounterVec
	cursorAdvancesTotal *prometheus.CounterVec

	// Classification and enrichment metrics
	transactionsClassifiedTotal *prometheus.CounterVec
	metadataFetchDuration       *prometheus.HistogramVec

	// Delivery metrics
	notificationsTotal       *prometheus.CounterVec
	notificationDuration     *prometheus.HistogramVec
	lastSaleTimestampSeconds *prometheus.GaugeVec

	// HTTP Metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),
		solanaRPCSignaturesPerCall: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_signatures_per_call",
				Help:    "Number of signatures fetched per GetSignaturesForAddress call",
				Buckets: []float64{0, 1, 10, 50, 100, 250, 500, 1000},
			},
			[]string{"endpoint"},
		),

		pollCyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salesbot_poll_cycles_total",
				Help: "Total number of poll loop iterations by result (batch, empty, fetch_error)",
			},
			[]string{"address", "result"},
		),
		cursorAdvancesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salesbot_cursor_advances_total",
				Help: "Total number of times the signature cursor moved forward",
			},
			[]string{"address"},
		),

		transactionsClassifiedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salesbot_transactions_classified_total",
				Help: "Total number of transactions classified, by outcome",
			},
			[]string{"address", "outcome"},
		),
		metadataFetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "salesbot_metadata_fetch_duration_seconds",
				Help:    "Duration of NFT metadata lookups (PDA, account load, JSON fetch)",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"status"},
		),

		notificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salesbot_notifications_total",
				Help: "Total number of sale notifications by sink and status",
			},
			[]string{"sink", "status"},
		),
		notificationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "salesbot_notification_duration_seconds",
				Help:    "Duration of sale notification delivery by sink",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"sink"},
		),
		lastSaleTimestampSeconds: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "salesbot_last_sale_block_time_seconds",
				Help: "Block time of the most recent sale observed, by marketplace",
			},
			[]string{"marketplace"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
	}
}

// Solana RPC metric helpers

// RecordRPCCall records a Solana RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	if m == nil {
		return
	}
	m.solanaRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordRPCSignaturesPerCall records the number of signatures fetched.
func (m *Metrics) RecordRPCSignaturesPerCall(endpoint string, count float64) {
	if m == nil {
		return
	}
	m.solanaRPCSignaturesPerCall.WithLabelValues(endpoint).Observe(count)
}

// Poll loop metric helpers

// RecordPollCycle records one loop iteration.
func (m *Metrics) RecordPollCycle(address, result string) {
	if m == nil {
		return
	}
	m.pollCyclesTotal.WithLabelValues(address, result).Inc()
}

// RecordCursorAdvance records the cursor moving past a batch.
func (m *Metrics) RecordCursorAdvance(address string) {
	if m == nil {
		return
	}
	m.cursorAdvancesTotal.WithLabelValues(address).Inc()
}

// Classification metric helpers

// RecordTransactionClassified records the outcome of processing one transaction.
func (m *Metrics) RecordTransactionClassified(address, outcome string) {
	if m == nil {
		return
	}
	m.transactionsClassifiedTotal.WithLabelValues(address, outcome).Inc()
}

// RecordMetadataFetch records a metadata lookup with duration.
func (m *Metrics) RecordMetadataFetch(duration float64, err error) {
	if m == nil {
		return
	}
	m.metadataFetchDuration.WithLabelValues(statusFromError(err)).Observe(duration)
}

// Delivery metric helpers

// RecordNotification records a delivery attempt to one sink.
func (m *Metrics) RecordNotification(sink string, duration float64, err error) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(sink, statusFromError(err)).Inc()
	m.notificationDuration.WithLabelValues(sink).Observe(duration)
}

// RecordSale records the block time of a sale for a marketplace.
func (m *Metrics) RecordSale(marketplace string, blockTimeUnix float64) {
	if m == nil {
		return
	}
	m.lastSaleTimestampSeconds.WithLabelValues(marketplace).Set(blockTimeUnix)
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	if m == nil {
		return
	}
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// Helper functions

func statusFromError(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func statusCodeToString(code int) string {
	// Group status codes by class
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
