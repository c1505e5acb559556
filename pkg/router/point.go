package router

import (
	"context"
	"time"
)

// SinkID names one of the two storage tiers.
type SinkID string

const (
	// Short retention, every telegram (1 / sec)
	HighRes SinkID = "high_res"
	// Long retention, once per minute
	LowRes SinkID = "low_res"
)

const (
	SeriesElectricity = "electricity"
	SeriesGas         = "gas"

	// Tag carrying the reading kind, e.g. reading=power
	KindTag = "reading"
)

// Point is a single time-series sample.
type Point struct {
	Series string
	Kind   string
	Field  string
	Value  float64
	Time   time.Time
}

// Batch is the set of points destined for one sink.
type Batch struct {
	Sink   SinkID
	Points []Point
}

// Sink stores points with second precision.
type Sink interface {
	Write(ctx context.Context, points []Point) error
}
