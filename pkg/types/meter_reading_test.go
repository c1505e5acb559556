package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadingFieldsAbsentByDefault(t *testing.T) {
	r := NewReadingBuilder().Build()

	_, ok := r.Timestamp()
	assert.False(t, ok)
	_, ok = r.Watt()
	assert.False(t, ok)
	_, ok = r.Gas()
	assert.False(t, ok)
	_, ok = r.EquipmentID()
	assert.False(t, ok)
}

func TestBuilderDoesNotMutateBuiltReading(t *testing.T) {
	b := NewReadingBuilder()
	b.SetWatt(234)
	first := b.Build()

	b.SetWatt(500)
	b.SetVoltage(230.1)

	w, ok := first.Watt()
	require.True(t, ok)
	assert.Equal(t, 234.0, w)
	_, ok = first.Voltage()
	assert.False(t, ok)
}

func TestZeroValueIsPresent(t *testing.T) {
	b := NewReadingBuilder()
	b.SetWatt(0)
	w, ok := b.Build().Watt()
	assert.True(t, ok)
	assert.Zero(t, w)
}

func TestTimestampStoredAsUTC(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	b := NewReadingBuilder()
	b.SetTimestamp(time.Date(2021, 2, 14, 19, 54, 40, 0, loc))

	ts, ok := b.Build().Timestamp()
	require.True(t, ok)
	assert.Equal(t, time.UTC, ts.Location())
	assert.Equal(t, 18, ts.Hour())
}

func TestJsonKeepsAbsentFieldsAbsent(t *testing.T) {
	b := NewReadingBuilder()
	b.SetTimestamp(time.Date(2021, 2, 14, 18, 54, 40, 0, time.UTC))
	b.SetWatt(234)
	b.SetTariffIndicator(2)
	b.SetEquipmentID("E0043007")

	data := b.Build().ToJsonBytes()
	assert.NotContains(t, string(data), "gas_m3")
	assert.NotContains(t, string(data), "voltage_v")

	decoded := MeterReadingFromJsonBytes(data)
	require.NotNil(t, decoded)

	ts, ok := decoded.Timestamp()
	require.True(t, ok)
	assert.True(t, ts.Equal(time.Date(2021, 2, 14, 18, 54, 40, 0, time.UTC)))
	w, ok := decoded.Watt()
	require.True(t, ok)
	assert.Equal(t, 234.0, w)
	ti, ok := decoded.TariffIndicator()
	require.True(t, ok)
	assert.Equal(t, 2, ti)
	_, ok = decoded.Gas()
	assert.False(t, ok)
}

func TestMeterReadingFromJsonBytesMalformed(t *testing.T) {
	assert.Nil(t, MeterReadingFromJsonBytes([]byte("{not json")))
}
