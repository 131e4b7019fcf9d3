package monitoring

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"waitline-system/models"
)

var (
	waitlineLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "waitline_length_total",
			Help: "Current waitline length per hall and segment",
		},
		[]string{"hall", "segment"},
	)

	notifiedParties = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "waitline_notified_parties_total",
			Help: "Parties whose almost-ready notice has fired",
		},
	)

	queueOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitline_operations_total",
			Help: "Total waitline operations by sync outcome",
		},
		[]string{"operation", "status"},
	)

	backendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitline_backend_failures_total",
			Help: "Failed best-effort calls to the venue backend",
		},
		[]string{"operation"},
	)

	notificationsFired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "waitline_notifications_fired_total",
			Help: "One-shot almost-ready notifications fired",
		},
	)

	waitEstimate = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "waitline_wait_estimate_minutes",
			Help:    "Estimated wait assigned at join time, in minutes",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
)

type Monitor struct {
	redis *redis.Client
}

func NewMonitor(redisClient *redis.Client) *Monitor {
	monitor := &Monitor{redis: redisClient}

	// Start metrics collection
	go monitor.collectMetrics()

	return monitor
}

func (m *Monitor) collectMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		ctx := context.Background()
		m.collectWaitlineMetrics(ctx)
	}
}

func (m *Monitor) collectWaitlineMetrics(ctx context.Context) {
	keys, _ := m.redis.Keys(ctx, "waitline:entries:*").Result()

	waitlineLength.Reset()
	notified := 0

	for _, key := range keys {
		data, err := m.redis.Get(ctx, key).Result()
		if err != nil {
			continue
		}

		var entries []models.QueueEntry
		if err := json.Unmarshal([]byte(data), &entries); err != nil {
			continue
		}

		for i := range entries {
			waitlineLength.WithLabelValues(string(entries[i].Hall), string(entries[i].Segment)).Inc()
			if entries[i].Notified {
				notified++
			}
		}
	}

	notifiedParties.Set(float64(notified))
}

// TrackOperation counts a waitline operation and its sync outcome.
func (m *Monitor) TrackOperation(operation, status string) {
	queueOperations.WithLabelValues(operation, status).Inc()
}

// TrackBackendFailure counts a swallowed venue backend failure.
func (m *Monitor) TrackBackendFailure(operation string) {
	backendFailures.WithLabelValues(operation).Inc()
}

// TrackNotification counts a fired almost-ready notice.
func (m *Monitor) TrackNotification() {
	notificationsFired.Inc()
}

// TrackWaitEstimate records the wait estimated at join time.
func (m *Monitor) TrackWaitEstimate(minutes float64) {
	waitEstimate.Observe(minutes)
}
