package types

import (
	"encoding/json"
	"time"
)

// MeterReading is the decoded content of one telegram.
// Every field is optional: a meter may omit any data identifier in a cycle.
// Values are built through ReadingBuilder and cannot be changed afterwards.
type MeterReading struct {
	timestamp    optional[time.Time]
	gasTimestamp optional[time.Time]

	// Delivered to the client
	watt    optional[float64]
	tariff1 optional[float64]
	tariff2 optional[float64]

	// Delivered by the client (solar etc.)
	returnWatt    optional[float64]
	returnTariff1 optional[float64]
	returnTariff2 optional[float64]

	// Electrical info
	voltage         optional[float64]
	current         optional[float64]
	tariffIndicator optional[int]
	equipmentID     optional[string]

	// Gas
	gas optional[float64]
}

// Timestamp is the UTC instant the meter stamped the telegram with.
func (r MeterReading) Timestamp() (time.Time, bool) { return r.timestamp.get() }

// GasTimestamp is the UTC instant of the last gas meter sample.
func (r MeterReading) GasTimestamp() (time.Time, bool) { return r.gasTimestamp.get() }

// Watt is the instantaneous power drawn from the grid.
func (r MeterReading) Watt() (float64, bool) { return r.watt.get() }

// Tariff1 is the cumulative kWh delivered on tariff 1.
func (r MeterReading) Tariff1() (float64, bool) { return r.tariff1.get() }

// Tariff2 is the cumulative kWh delivered on tariff 2.
func (r MeterReading) Tariff2() (float64, bool) { return r.tariff2.get() }

func (r MeterReading) ReturnWatt() (float64, bool)    { return r.returnWatt.get() }
func (r MeterReading) ReturnTariff1() (float64, bool) { return r.returnTariff1.get() }
func (r MeterReading) ReturnTariff2() (float64, bool) { return r.returnTariff2.get() }

// Voltage is the L1 voltage.
func (r MeterReading) Voltage() (float64, bool) { return r.voltage.get() }

// Current is the L1 current in ampere.
func (r MeterReading) Current() (float64, bool) { return r.current.get() }

func (r MeterReading) TariffIndicator() (int, bool) { return r.tariffIndicator.get() }
func (r MeterReading) EquipmentID() (string, bool)  { return r.equipmentID.get() }

// Gas is the cumulative gas volume in m3.
func (r MeterReading) Gas() (float64, bool) { return r.gas.get() }

// ReadingBuilder collects decoded fields for a single telegram.
type ReadingBuilder struct {
	r MeterReading
}

func NewReadingBuilder() *ReadingBuilder {
	return &ReadingBuilder{}
}

func (b *ReadingBuilder) SetTimestamp(t time.Time)    { b.r.timestamp = some(t.UTC()) }
func (b *ReadingBuilder) SetGasTimestamp(t time.Time) { b.r.gasTimestamp = some(t.UTC()) }
func (b *ReadingBuilder) SetWatt(v float64)           { b.r.watt = some(v) }
func (b *ReadingBuilder) SetTariff1(v float64)        { b.r.tariff1 = some(v) }
func (b *ReadingBuilder) SetTariff2(v float64)        { b.r.tariff2 = some(v) }
func (b *ReadingBuilder) SetReturnWatt(v float64)     { b.r.returnWatt = some(v) }
func (b *ReadingBuilder) SetReturnTariff1(v float64)  { b.r.returnTariff1 = some(v) }
func (b *ReadingBuilder) SetReturnTariff2(v float64)  { b.r.returnTariff2 = some(v) }
func (b *ReadingBuilder) SetVoltage(v float64)        { b.r.voltage = some(v) }
func (b *ReadingBuilder) SetCurrent(v float64)        { b.r.current = some(v) }
func (b *ReadingBuilder) SetTariffIndicator(v int)    { b.r.tariffIndicator = some(v) }
func (b *ReadingBuilder) SetEquipmentID(v string)     { b.r.equipmentID = some(v) }
func (b *ReadingBuilder) SetGas(v float64)            { b.r.gas = some(v) }

// Build returns the reading collected so far.
// The builder can keep being used without affecting returned values.
func (b *ReadingBuilder) Build() MeterReading {
	return b.r
}

type jsonMeterReading struct {
	Timestamp       *time.Time `json:"timestamp,omitempty"`
	GasTimestamp    *time.Time `json:"gas_timestamp,omitempty"`
	Watt            *float64   `json:"watt,omitempty"`
	Tariff1         *float64   `json:"tariff1_kwh,omitempty"`
	Tariff2         *float64   `json:"tariff2_kwh,omitempty"`
	ReturnWatt      *float64   `json:"return_watt,omitempty"`
	ReturnTariff1   *float64   `json:"return_tariff1_kwh,omitempty"`
	ReturnTariff2   *float64   `json:"return_tariff2_kwh,omitempty"`
	Voltage         *float64   `json:"voltage_v,omitempty"`
	Current         *float64   `json:"current_a,omitempty"`
	TariffIndicator *int       `json:"tariff_indicator,omitempty"`
	EquipmentID     *string    `json:"equipment_id,omitempty"`
	Gas             *float64   `json:"gas_m3,omitempty"`
}

func (r MeterReading) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonMeterReading{
		Timestamp:       r.timestamp.ptr(),
		GasTimestamp:    r.gasTimestamp.ptr(),
		Watt:            r.watt.ptr(),
		Tariff1:         r.tariff1.ptr(),
		Tariff2:         r.tariff2.ptr(),
		ReturnWatt:      r.returnWatt.ptr(),
		ReturnTariff1:   r.returnTariff1.ptr(),
		ReturnTariff2:   r.returnTariff2.ptr(),
		Voltage:         r.voltage.ptr(),
		Current:         r.current.ptr(),
		TariffIndicator: r.tariffIndicator.ptr(),
		EquipmentID:     r.equipmentID.ptr(),
		Gas:             r.gas.ptr(),
	})
}

func (r *MeterReading) UnmarshalJSON(data []byte) error {
	var j jsonMeterReading
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*r = MeterReading{
		timestamp:       fromPtr(j.Timestamp),
		gasTimestamp:    fromPtr(j.GasTimestamp),
		watt:            fromPtr(j.Watt),
		tariff1:         fromPtr(j.Tariff1),
		tariff2:         fromPtr(j.Tariff2),
		returnWatt:      fromPtr(j.ReturnWatt),
		returnTariff1:   fromPtr(j.ReturnTariff1),
		returnTariff2:   fromPtr(j.ReturnTariff2),
		voltage:         fromPtr(j.Voltage),
		current:         fromPtr(j.Current),
		tariffIndicator: fromPtr(j.TariffIndicator),
		equipmentID:     fromPtr(j.EquipmentID),
		gas:             fromPtr(j.Gas),
	}
	if t, ok := r.timestamp.get(); ok {
		r.timestamp = some(t.UTC())
	}
	if t, ok := r.gasTimestamp.get(); ok {
		r.gasTimestamp = some(t.UTC())
	}
	return nil
}

// ToJsonBytes encodes the reading for the live feed.
func (r MeterReading) ToJsonBytes() []byte {
	data, err := json.Marshal(r)
	if err != nil {
		return []byte("{}")
	}
	return data
}

// MeterReadingFromJsonBytes decodes a live feed message, nil when malformed.
func MeterReadingFromJsonBytes(data []byte) *MeterReading {
	var r MeterReading
	if err := json.Unmarshal(data, &r); err != nil {
		return nil
	}
	return &r
}
