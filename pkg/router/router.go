// Package router turns readings into time-series points and decides which
// storage tier receives them.
package router

import (
	"errors"
	"time"

	"github.com/NotCoffee418/p1_telemetry/pkg/types"
)

var ErrIncompleteReading = errors.New("reading has no timestamp")

type pointDef struct {
	series string
	kind   string
	field  string
	value  func(types.MeterReading) (float64, bool)
}

var electricityPoints = []pointDef{
	{SeriesElectricity, "power", "watt", types.MeterReading.Watt},
	{SeriesElectricity, "tariff1", "kwh", types.MeterReading.Tariff1},
	{SeriesElectricity, "tariff2", "kwh", types.MeterReading.Tariff2},
	{SeriesElectricity, "voltage", "volt", types.MeterReading.Voltage},
	{SeriesElectricity, "return_power", "watt", types.MeterReading.ReturnWatt},
	{SeriesElectricity, "return_tariff1", "kwh", types.MeterReading.ReturnTariff1},
	{SeriesElectricity, "return_tariff2", "kwh", types.MeterReading.ReturnTariff2},
	{SeriesElectricity, "current", "ampere", types.MeterReading.Current},
}

type Router struct{}

func New() *Router {
	return &Router{}
}

// Points builds the point set of a reading. Absent fields produce no point.
func (r *Router) Points(reading types.MeterReading) ([]Point, error) {
	ts, ok := reading.Timestamp()
	if !ok {
		return nil, ErrIncompleteReading
	}
	ts = ts.Truncate(time.Second)

	points := make([]Point, 0, len(electricityPoints)+1)
	for _, def := range electricityPoints {
		if v, ok := def.value(reading); ok {
			points = append(points, Point{
				Series: def.series,
				Kind:   def.kind,
				Field:  def.field,
				Value:  v,
				Time:   ts,
			})
		}
	}

	if gas, ok := reading.Gas(); ok {
		gasTime := ts
		if gts, ok := reading.GasTimestamp(); ok {
			gasTime = gts.Truncate(time.Second)
		}
		points = append(points, Point{
			Series: SeriesGas,
			Kind:   "usage",
			Field:  "m3",
			Value:  gas,
			Time:   gasTime,
		})
	}
	return points, nil
}

// Route always targets HighRes and adds LowRes on the first second of a
// minute, which downsamples the 1 Hz stream without an aggregation job.
func (r *Router) Route(reading types.MeterReading) ([]Batch, error) {
	points, err := r.Points(reading)
	if err != nil {
		return nil, err
	}

	batches := []Batch{{Sink: HighRes, Points: points}}
	ts, _ := reading.Timestamp()
	if ts.Second() == 0 {
		batches = append(batches, Batch{Sink: LowRes, Points: append([]Point(nil), points...)})
	}
	return batches, nil
}
