package meterdb

import (
	"errors"
	"fmt"

	"github.com/NotCoffee418/p1_telemetry/pkg/router"
)

var ErrUnknownTier = errors.New("unknown storage tier")

// One table per resolution tier, same layout.
var tierTables = map[router.SinkID]string{
	router.HighRes: "high_res_points",
	router.LowRes:  "low_res_points",
}

func tableFor(tier router.SinkID) (string, error) {
	table, ok := tierTables[tier]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}
	return table, nil
}

type MeterDbPoint struct {
	Timestamp int64   `db:"timestamp"`
	Series    string  `db:"series"`
	Kind      string  `db:"kind"`
	Field     string  `db:"field"`
	Value     float64 `db:"value"`
}
