// Package metrics provides metrics collection and reporting. Counters are
// kept in memory and written to Redis periodically for external visibility.
package metrics

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// MetricsKeyPrefix is the Redis key prefix for service metrics.
	MetricsKeyPrefix = "metrics:"
	// MetricsTTL is how long metrics stay in Redis if not refreshed.
	MetricsTTL = 2 * time.Minute
	// DefaultReportInterval is the default interval for writing metrics to Redis.
	DefaultReportInterval = 30 * time.Second
)

// ServiceMetrics holds a point-in-time snapshot of the service counters.
type ServiceMetrics struct {
	ServiceName string    `json:"service_name"`
	StartedAt   time.Time `json:"started_at"`
	LastUpdated time.Time `json:"last_updated"`
	Status      string    `json:"status"`

	// Counters (monotonically increasing since start)
	MailReceived      uint64 `json:"mail_received"`
	MailProcessed     uint64 `json:"mail_processed"`
	MailUnrecognized  uint64 `json:"mail_unrecognized"`
	RecordsPublished  uint64 `json:"records_published"`
	NotificationsSent uint64 `json:"notifications_sent"`
	ProcessingErrors  uint64 `json:"processing_errors"`

	// Rate (per report interval)
	MailPerSecond float64 `json:"mail_per_second"`

	// Average processing latency in nanoseconds
	AvgProcessingLatencyNs float64 `json:"avg_processing_latency_ns"`
}

// Recorder is the counter surface the processing loop records against.
type Recorder interface {
	RecordReceived()
	RecordProcessed(latency time.Duration)
	RecordUnrecognized()
	RecordPublished()
	RecordNotificationSent()
	RecordError()
}

// NoOp is a Recorder that discards everything. Used when metrics are
// disabled.
type NoOp struct{}

func (NoOp) RecordReceived() {}
func (NoOp) RecordProcessed(latency time.Duration) {}
func (NoOp) RecordUnrecognized() {}
func (NoOp) RecordPublished() {}
func (NoOp) RecordNotificationSent() {}
func (NoOp) RecordError() {}

// Collector collects counters and reports them to Redis.
type Collector struct {
	serviceName    string
	redis          *redis.Client
	startedAt      time.Time
	reportInterval time.Duration

	mailReceived      atomic.Uint64
	mailProcessed     atomic.Uint64
	mailUnrecognized  atomic.Uint64
	recordsPublished  atomic.Uint64
	notificationsSent atomic.Uint64
	processingErrors  atomic.Uint64

	// For rate calculation
	lastReportTime     time.Time
	lastProcessedCount uint64

	totalLatencyNs atomic.Uint64
	latencyCount   atomic.Uint64

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewCollector creates a new metrics collector.
func NewCollector(serviceName string, redisClient *redis.Client) *Collector {
	return &Collector{
		serviceName:    serviceName,
		redis:          redisClient,
		startedAt:      time.Now().UTC(),
		reportInterval: DefaultReportInterval,
		lastReportTime: time.Now().UTC(),
		stopCh:         make(chan struct{}),
	}
}

// SetReportInterval sets the interval for writing metrics to Redis.
func (c *Collector) SetReportInterval(interval time.Duration) {
	c.reportInterval = interval
}

// Start begins the periodic metrics reporting to Redis.
func (c *Collector) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.reportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				c.writeMetrics(context.Background()) // Final write
				return
			case <-c.stopCh:
				c.writeMetrics(context.Background()) // Final write
				return
			case <-ticker.C:
				c.writeMetrics(ctx)
			}
		}
	}()
}

// Stop stops the metrics reporting.
func (c *Collector) Stop() {
	close(c.stopCh)
	c.wg.Wait()
}

// RecordReceived increments the mail received counter.
func (c *Collector) RecordReceived() {
	c.mailReceived.Add(1)
}

// RecordProcessed increments the mail processed counter with latency.
func (c *Collector) RecordProcessed(latency time.Duration) {
	c.mailProcessed.Add(1)
	c.totalLatencyNs.Add(uint64(latency.Nanoseconds()))
	c.latencyCount.Add(1)
}

// RecordUnrecognized increments the unrecognized mail counter.
func (c *Collector) RecordUnrecognized() {
	c.mailUnrecognized.Add(1)
}

// RecordPublished increments the records published counter.
func (c *Collector) RecordPublished() {
	c.recordsPublished.Add(1)
}

// RecordNotificationSent increments the notifications sent counter.
func (c *Collector) RecordNotificationSent() {
	c.notificationsSent.Add(1)
}

// RecordError increments the processing errors counter.
func (c *Collector) RecordError() {
	c.processingErrors.Add(1)
}

// GetSnapshot returns current metrics without writing to Redis.
func (c *Collector) GetSnapshot() *ServiceMetrics {
	now := time.Now().UTC()
	processed := c.mailProcessed.Load()

	elapsed := now.Sub(c.lastReportTime).Seconds()
	var rate float64
	if elapsed > 0 {
		rate = float64(processed-c.lastProcessedCount) / elapsed
	}

	var avgLatencyNs float64
	latencyCount := c.latencyCount.Load()
	if latencyCount > 0 {
		avgLatencyNs = float64(c.totalLatencyNs.Load()) / float64(latencyCount)
	}

	return &ServiceMetrics{
		ServiceName:            c.serviceName,
		StartedAt:              c.startedAt,
		LastUpdated:            now,
		Status:                 "healthy",
		MailReceived:           c.mailReceived.Load(),
		MailProcessed:          processed,
		MailUnrecognized:       c.mailUnrecognized.Load(),
		RecordsPublished:       c.recordsPublished.Load(),
		NotificationsSent:      c.notificationsSent.Load(),
		ProcessingErrors:       c.processingErrors.Load(),
		MailPerSecond:          rate,
		AvgProcessingLatencyNs: avgLatencyNs,
	}
}

// writeMetrics writes current metrics to Redis.
func (c *Collector) writeMetrics(ctx context.Context) {
	if c.redis == nil {
		return
	}

	snapshot := c.GetSnapshot()

	// Rate calculation state advances per write. Latency counters are not
	// reset so the average stays visible after a burst completes.
	c.lastReportTime = snapshot.LastUpdated
	c.lastProcessedCount = snapshot.MailProcessed

	data, err := json.Marshal(snapshot)
	if err != nil {
		slog.Error("Failed to marshal metrics", "service", c.serviceName, "error", err)
		return
	}

	key := MetricsKeyPrefix + c.serviceName
	if err := c.redis.Set(ctx, key, data, MetricsTTL).Err(); err != nil {
		slog.Error("Failed to write metrics to Redis", "service", c.serviceName, "error", err)
		return
	}

	slog.Debug("Metrics written to Redis", "service", c.serviceName, "key", key)
}
