package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/NotCoffee418/p1_telemetry/pkg/logging"
	"github.com/NotCoffee418/p1_telemetry/pkg/pipeline"
	"github.com/NotCoffee418/p1_telemetry/pkg/port_reader"
	"github.com/NotCoffee418/p1_telemetry/pkg/router"
	"github.com/NotCoffee418/p1_telemetry/pkg/telegram"
	"github.com/NotCoffee418/p1_telemetry/pkg/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	checkByteOrder  string
	checkTerminator string
)

var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Decode a captured telegram dump",
	Long: `Run a file of captured P1 output through the pipeline without opening the
serial port or writing to InfluxDB. Every decoded reading is printed as JSON,
followed by the statistics of the run. Use "-" to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkByteOrder, "byte-order", "msb", "Checksum byte order (msb or lsb)")
	checkCmd.Flags().StringVar(&checkTerminator, "terminator", "crlf", "Line terminator covered by the checksum (crlf or lf)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger, err := logging.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg := pipeline.DefaultConfig()
	if cfg.ByteOrder, err = telegram.ParseByteOrder(checkByteOrder); err != nil {
		return err
	}
	switch checkTerminator {
	case "crlf":
	case "lf":
		cfg.Terminator = "\n"
	default:
		return fmt.Errorf("unknown terminator %q", checkTerminator)
	}

	in := io.Reader(os.Stdin)
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	_, err = checkDump(cmd.Context(), in, cmd.OutOrStdout(), cfg, logger)
	return err
}

// checkDump decodes every telegram in r, printing readings and statistics to w.
func checkDump(ctx context.Context, r io.Reader, w io.Writer, cfg pipeline.Config, logger *zap.Logger) (pipeline.StatsSnapshot, error) {
	high, low := router.NewMemorySink(), router.NewMemorySink()
	proc := pipeline.NewProcessor(cfg, map[router.SinkID]router.Sink{
		router.HighRes: high,
		router.LowRes:  low,
	}, logger)
	proc.OnReading(func(reading types.MeterReading) {
		fmt.Fprintln(w, string(reading.ToJsonBytes()))
	})

	if err := port_reader.Run(ctx, port_reader.NewLineReader(r), proc, logger); err != nil {
		return pipeline.StatsSnapshot{}, err
	}

	stats := proc.Stats().Snapshot()
	fmt.Fprintf(w, "\nHigh resolution points: %d\n", len(high.Points()))
	fmt.Fprintf(w, "Low resolution points:  %d\n", len(low.Points()))
	fmt.Fprint(w, stats.String())
	return stats, nil
}
