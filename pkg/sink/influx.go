// Package sink stores routed points in InfluxDB 2 buckets.
package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NotCoffee418/p1_telemetry/pkg/config"
	"github.com/NotCoffee418/p1_telemetry/pkg/router"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"
)

var ErrInfluxUnavailable = errors.New("influxdb unavailable")

// InfluxClient owns the connection shared by both bucket sinks.
type InfluxClient struct {
	client influxdb2.Client
	cfg    config.InfluxConfig
	logger *zap.Logger
}

func NewInfluxClient(cfg config.InfluxConfig, logger *zap.Logger) *InfluxClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := influxdb2.DefaultOptions().
		SetPrecision(time.Second).
		SetHTTPRequestTimeout(uint(cfg.Timeout() / time.Second))
	return &InfluxClient{
		client: influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts),
		cfg:    cfg,
		logger: logger,
	}
}

// Ping checks that the server is reachable.
func (c *InfluxClient) Ping(ctx context.Context) error {
	ok, err := c.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInfluxUnavailable, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s did not answer ping", ErrInfluxUnavailable, c.cfg.URL)
	}
	return nil
}

// Sinks returns the bucket sink of each resolution tier.
func (c *InfluxClient) Sinks() map[router.SinkID]router.Sink {
	return map[router.SinkID]router.Sink{
		router.HighRes: c.Bucket(c.cfg.HighResBucket),
		router.LowRes:  c.Bucket(c.cfg.LowResBucket),
	}
}

func (c *InfluxClient) Bucket(bucket string) *BucketSink {
	return &BucketSink{
		bucket: bucket,
		writer: c.client.WriteAPIBlocking(c.cfg.Org, bucket),
		logger: c.logger.With(zap.String("bucket", bucket)),
	}
}

func (c *InfluxClient) Close() {
	c.client.Close()
}

// BucketSink writes points into a single bucket.
type BucketSink struct {
	bucket string
	writer api.WriteAPIBlocking
	logger *zap.Logger
}

func (s *BucketSink) Write(ctx context.Context, points []router.Point) error {
	if len(points) == 0 {
		return nil
	}
	pts := make([]*write.Point, 0, len(points))
	for _, p := range points {
		pts = append(pts, toInfluxPoint(p))
	}
	if err := s.writer.WritePoint(ctx, pts...); err != nil {
		return fmt.Errorf("write %d points to %s: %w", len(pts), s.bucket, err)
	}
	s.logger.Debug("points written", zap.Int("points", len(pts)))
	return nil
}

// toInfluxPoint maps a sample to measurement=series, reading=kind, field=value.
func toInfluxPoint(p router.Point) *write.Point {
	return influxdb2.NewPoint(
		p.Series,
		map[string]string{router.KindTag: p.Kind},
		map[string]interface{}{p.Field: p.Value},
		p.Time,
	)
}
