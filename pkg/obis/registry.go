// Package obis decodes telegram body lines into a MeterReading through a
// registry of known data identifiers.
package obis

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/NotCoffee418/p1_telemetry/pkg/esmutils"
	"github.com/NotCoffee418/p1_telemetry/pkg/types"
)

// Decoder converts the submatches of a line into reading fields.
// match[0] is the full line.
type Decoder func(b *types.ReadingBuilder, match []string, offsets Offsets) error

// Field binds one data identifier to its line pattern and decoder.
type Field struct {
	Identifier string
	Pattern    *regexp.Regexp
	Decode     Decoder
}

// Registry is an ordered, read-only list of fields.
type Registry struct {
	fields []Field
}

func NewRegistry(fields ...Field) *Registry {
	return &Registry{fields: append([]Field(nil), fields...)}
}

// With returns a new registry with f appended; r is left untouched.
func (r *Registry) With(f Field) *Registry {
	fields := make([]Field, 0, len(r.fields)+1)
	fields = append(fields, r.fields...)
	return &Registry{fields: append(fields, f)}
}

func (r *Registry) Fields() []Field {
	return append([]Field(nil), r.fields...)
}

// fixed-point decimal as sent by the meter
var fixedPoint = regexp.MustCompile(`^\d+(\.\d+)?$`)

func parseFixedPoint(raw string) (float64, error) {
	if !fixedPoint.MatchString(raw) {
		return 0, fmt.Errorf("not a fixed-point decimal")
	}
	return strconv.ParseFloat(raw, 64)
}

// Decimal sets a plain fixed-point value from the first submatch.
func Decimal(set func(*types.ReadingBuilder, float64)) Decoder {
	return func(b *types.ReadingBuilder, match []string, _ Offsets) error {
		v, err := parseFixedPoint(match[1])
		if err != nil {
			return err
		}
		set(b, v)
		return nil
	}
}

// Kilowatt parses a kW value and stores it in watt.
func Kilowatt(set func(*types.ReadingBuilder, float64)) Decoder {
	return func(b *types.ReadingBuilder, match []string, _ Offsets) error {
		v, err := parseFixedPoint(match[1])
		if err != nil {
			return err
		}
		set(b, esmutils.KwToW(v))
		return nil
	}
}

// Timestamp converts a "YYMMDDhhmmssX" submatch to UTC.
func Timestamp(set func(*types.ReadingBuilder, time.Time)) Decoder {
	return func(b *types.ReadingBuilder, match []string, offsets Offsets) error {
		ts, err := offsets.ToUTC(splitTimestamp(match[1]))
		if err != nil {
			return err
		}
		set(b, ts)
		return nil
	}
}

func decodeGas(b *types.ReadingBuilder, match []string, offsets Offsets) error {
	ts, err := offsets.ToUTC(splitTimestamp(match[1]))
	if err != nil {
		return err
	}
	v, err := parseFixedPoint(match[2])
	if err != nil {
		return err
	}
	b.SetGasTimestamp(ts)
	b.SetGas(v)
	return nil
}

func decodeTariffIndicator(b *types.ReadingBuilder, match []string, _ Offsets) error {
	v, err := strconv.Atoi(match[1])
	if err != nil {
		return err
	}
	b.SetTariffIndicator(v)
	return nil
}

// Equipment ids are hex encoded ASCII; keep the raw text when they are not.
func decodeEquipmentID(b *types.ReadingBuilder, match []string, _ Offsets) error {
	if decoded, err := hex.DecodeString(match[1]); err == nil {
		b.SetEquipmentID(string(decoded))
	} else {
		b.SetEquipmentID(match[1])
	}
	return nil
}

var defaultRegistry = NewRegistry(
	// 0-0:1.0.0(210214195440W)
	Field{"0-0:1.0.0", regexp.MustCompile(`^0-0:1\.0\.0\(([^)]*)\)$`), Timestamp((*types.ReadingBuilder).SetTimestamp)},
	// 1-0:1.7.0(00.234*kW)
	Field{"1-0:1.7.0", regexp.MustCompile(`^1-0:1\.7\.0\(([^)*]*)\*kW\)$`), Kilowatt((*types.ReadingBuilder).SetWatt)},
	// 1-0:1.8.1(000032.289*kWh)
	Field{"1-0:1.8.1", regexp.MustCompile(`^1-0:1\.8\.1\(([^)*]*)\*kWh\)$`), Decimal((*types.ReadingBuilder).SetTariff1)},
	// 1-0:1.8.2(000016.064*kWh)
	Field{"1-0:1.8.2", regexp.MustCompile(`^1-0:1\.8\.2\(([^)*]*)\*kWh\)$`), Decimal((*types.ReadingBuilder).SetTariff2)},
	// 1-0:32.7.0(235.2*V)
	Field{"1-0:32.7.0", regexp.MustCompile(`^1-0:32\.7\.0\(([^)*]*)\*V\)$`), Decimal((*types.ReadingBuilder).SetVoltage)},
	// 0-1:24.2.1(210214195003W)(00026.800*m3)
	Field{"0-1:24.2.1", regexp.MustCompile(`^0-1:24\.2\.1\(([^)]*)\)\(([^)*]*)\*m3\)$`), decodeGas},
	// Belgian e-MUCS meters
	Field{"0-1:24.2.3", regexp.MustCompile(`^0-1:24\.2\.3\(([^)]*)\)\(([^)*]*)\*m3\)$`), decodeGas},
	// 1-0:2.7.0(00.000*kW)
	Field{"1-0:2.7.0", regexp.MustCompile(`^1-0:2\.7\.0\(([^)*]*)\*kW\)$`), Kilowatt((*types.ReadingBuilder).SetReturnWatt)},
	// 1-0:2.8.1(000000.000*kWh)
	Field{"1-0:2.8.1", regexp.MustCompile(`^1-0:2\.8\.1\(([^)*]*)\*kWh\)$`), Decimal((*types.ReadingBuilder).SetReturnTariff1)},
	// 1-0:2.8.2(000000.000*kWh)
	Field{"1-0:2.8.2", regexp.MustCompile(`^1-0:2\.8\.2\(([^)*]*)\*kWh\)$`), Decimal((*types.ReadingBuilder).SetReturnTariff2)},
	// 1-0:31.7.0(001*A)
	Field{"1-0:31.7.0", regexp.MustCompile(`^1-0:31\.7\.0\(([^)*]*)\*A\)$`), Decimal((*types.ReadingBuilder).SetCurrent)},
	// 0-0:96.14.0(0002)
	Field{"0-0:96.14.0", regexp.MustCompile(`^0-0:96\.14\.0\(([^)]*)\)$`), decodeTariffIndicator},
	// 0-0:96.1.1(4530303433303037)
	Field{"0-0:96.1.1", regexp.MustCompile(`^0-0:96\.1\.1\(([^)]*)\)$`), decodeEquipmentID},
)

// DefaultRegistry is shared by every extractor that does not bring its own.
func DefaultRegistry() *Registry {
	return defaultRegistry
}
