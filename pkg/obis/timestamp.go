package obis

import (
	"fmt"
	"time"
)

// Timestamp format used in P1
const p1TimeLayout = "060102150405"

// Offsets are the UTC offsets of the meter's local time for the two
// seasonal flags, east of UTC.
type Offsets struct {
	Standard time.Duration // W
	Daylight time.Duration // S
}

// Central European Time, what DSMR meters in NL/BE are set to
var DefaultOffsets = Offsets{
	Standard: time.Hour,
	Daylight: 2 * time.Hour,
}

// ToUTC converts a P1 "YYMMDDhhmmss" local time with its W/S flag.
// Only the flag decides which offset applies.
func (o Offsets) ToUTC(local string, flag string) (time.Time, error) {
	var offset time.Duration
	switch flag {
	case "W":
		offset = o.Standard
	case "S":
		offset = o.Daylight
	default:
		return time.Time{}, fmt.Errorf("unknown dst flag %q", flag)
	}

	if len(local) != len(p1TimeLayout) {
		return time.Time{}, fmt.Errorf("timestamp %q is not YYMMDDhhmmss", local)
	}
	wall, err := time.ParseInLocation(p1TimeLayout, local, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return wall.Add(-offset), nil
}

// splitTimestamp separates "210214195440W" into time and flag.
func splitTimestamp(raw string) (string, string) {
	if raw == "" {
		return "", ""
	}
	return raw[:len(raw)-1], raw[len(raw)-1:]
}
