// Responsible for storing the data collected from the smart meter
// Depends on the interpreter API being online.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/NotCoffee418/p1_telemetry/pkg/config"
	"github.com/NotCoffee418/p1_telemetry/pkg/interpreter"
	"github.com/NotCoffee418/p1_telemetry/pkg/logging"
	"github.com/NotCoffee418/p1_telemetry/pkg/meterdb"
	"github.com/NotCoffee418/p1_telemetry/pkg/pathing"
	"github.com/NotCoffee418/p1_telemetry/pkg/retention"
	"github.com/NotCoffee418/p1_telemetry/pkg/router"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "meter_collector",
	Short: "Store the interpreter API feed in SQLite",
	Long: `Subscribes to the interpreter API websocket feed and stores every reading in
the high resolution table and one reading per minute in the low resolution
table. High resolution points older than the retention window are removed
periodically.`,
	SilenceUsage: true,
	RunE:         runCollector,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c",
		pathing.GetMeterCollectorConfigPath(), "Path to the TOML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCollector(cmd *cobra.Command, args []string) error {
	logger, err := logging.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := config.LoadMeterCollectorConfig(configPath)
	if err != nil {
		logger.Error("failed to load meter collector config", zap.Error(err))
		return err
	}

	store, err := meterdb.Open(cfg.DatabasePath, logger.Named("meterdb"))
	if err != nil {
		logger.Error("failed to open meter db", zap.Error(err))
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cleaner := retention.NewCleaner(store, router.HighRes,
		cfg.HighResRetention(), cfg.PruneInterval(), logger.Named("retention"))
	go cleaner.Run(ctx)

	c := newCollector(router.New(), store.Sinks(), logger)

	// Subscribe to websocket with revive
	err = interpreter.StartListener(ctx, cfg.InterpreterAPIHost, cfg.TLSEnabled,
		interpreter.DefaultListenerOptions(), c.handleMeterReading, logger.Named("listener"))
	if err != nil {
		logger.Error("listener stopped", zap.Error(err))
	}
	logger.Info("meter collector stopped",
		zap.Uint64("stored", c.stored.Load()),
		zap.Uint64("dropped", c.dropped.Load()),
		zap.Uint64("high_res_failures", c.failures(router.HighRes)),
		zap.Uint64("low_res_failures", c.failures(router.LowRes)))
	return err
}
