package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/NotCoffee418/p1_telemetry/pkg/pipeline"
	"github.com/NotCoffee418/p1_telemetry/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const dump = "1-0:1.8.2(000016.064*kWh)\r\n" +
	"!85C5\r\n" +
	"/ISK5\\2M550E-1013\r\n" +
	"0-0:1.0.0(210214195440W)\r\n" +
	"1-0:1.7.0(00.234*kW)\r\n" +
	"1-0:1.8.1(000032.289*kWh)\r\n" +
	"1-0:1.8.2(000016.064*kWh)\r\n" +
	"1-0:32.7.0(235.2*V)\r\n" +
	"0-1:24.2.1(210214195003W)(00026.800*m3)\r\n" +
	"!85C5\r\n" +
	"/ISK5\\2M550E-1013\r\n" +
	"0-0:1.0.0(210214195441W)\r\n" +
	"!AEB6\r\n"

func TestCheckDump(t *testing.T) {
	var out bytes.Buffer
	stats, err := checkDump(context.Background(), strings.NewReader(dump), &out, pipeline.DefaultConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, uint64(2), stats.Frames)
	assert.Equal(t, uint64(1), stats.Readings)
	assert.Equal(t, uint64(1), stats.Resyncs)
	assert.Equal(t, uint64(1), stats.ChecksumErrors)

	lines := strings.Split(out.String(), "\n")
	reading := types.MeterReadingFromJsonBytes([]byte(lines[0]))
	require.NotNil(t, reading)
	w, _ := reading.Watt()
	assert.Equal(t, 234.0, w)

	assert.Contains(t, out.String(), "High resolution points: 5")
	assert.Contains(t, out.String(), "Low resolution points:  0")
	assert.Contains(t, out.String(), "Checksum Errors:")
}
