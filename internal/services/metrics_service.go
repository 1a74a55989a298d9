package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"report-generator/internal/config"
	"report-generator/internal/logger"
)

// MetricsMeasurement is the InfluxDB measurement written per relayed request
const MetricsMeasurement = "relay_request"

// RequestMetric describes one relayed request
type RequestMetric struct {
	Method   string
	Table    string
	Status   int
	Duration time.Duration
	Replayed bool
	At       time.Time
}

// MetricsService writes relay telemetry to InfluxDB. A nil *MetricsService
// is valid and records nothing.
type MetricsService struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	org      string
	bucket   string
}

// NewMetricsService connects to InfluxDB and checks its health
func NewMetricsService(ctx context.Context, cfg config.InfluxDBConfig) (*MetricsService, error) {
	logger.Info("Initializing InfluxDB client", "url", cfg.URL, "org", cfg.Org, "bucket", cfg.Bucket)

	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to InfluxDB: %w", err)
	}
	if health.Status != "pass" {
		logger.Warn("InfluxDB health check returned status", "status", health.Status)
	}

	return &MetricsService{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		org:      cfg.Org,
		bucket:   cfg.Bucket,
	}, nil
}

// Record writes one request metric. Failures are logged, never returned.
func (s *MetricsService) Record(ctx context.Context, m RequestMetric) {
	if s == nil {
		return
	}
	if m.At.IsZero() {
		m.At = time.Now()
	}
	point := influxdb2.NewPoint(MetricsMeasurement,
		map[string]string{
			"method": m.Method,
			"table":  m.Table,
			"status": strconv.Itoa(m.Status),
		},
		map[string]interface{}{
			"duration_ms": float64(m.Duration) / float64(time.Millisecond),
			"replayed":    m.Replayed,
		},
		m.At,
	)
	if err := s.writeAPI.WritePoint(ctx, point); err != nil {
		logger.Error("Failed to write relay metric", "org", s.org, "bucket", s.bucket, "error", err)
	}
}

// Close closes the InfluxDB client connection
func (s *MetricsService) Close() {
	if s != nil && s.client != nil {
		s.client.Close()
	}
}
