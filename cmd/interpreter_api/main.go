// Interpreter API is responsible for reading the P1 port, storing the readings
// in InfluxDB and broadcasting them.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NotCoffee418/p1_telemetry/pkg/config"
	"github.com/NotCoffee418/p1_telemetry/pkg/interpreter"
	"github.com/NotCoffee418/p1_telemetry/pkg/logging"
	"github.com/NotCoffee418/p1_telemetry/pkg/pathing"
	"github.com/NotCoffee418/p1_telemetry/pkg/pipeline"
	"github.com/NotCoffee418/p1_telemetry/pkg/port_reader"
	"github.com/NotCoffee418/p1_telemetry/pkg/router"
	"github.com/NotCoffee418/p1_telemetry/pkg/sink"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "interpreter_api",
	Short: "P1 smart meter interpreter",
	Long: `Reads DSMR telegrams from the meter's P1 port, validates and decodes them,
writes every reading to the high resolution InfluxDB bucket and one reading per
minute to the low resolution bucket.

Readings are also served over HTTP:
  GET /        status
  GET /latest  last reading
  GET /stats   pipeline counters
  GET /ws      websocket feed of every reading`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c",
		pathing.GetInterpreterAPIConfigPath(), "Path to the TOML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := logging.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := config.LoadInterpreterAPIConfig(configPath)
	if err != nil {
		logger.Error("failed to load interpreter API config", zap.Error(err))
		return err
	}
	pipelineCfg, err := cfg.PipelineConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks := map[router.SinkID]router.Sink{}
	if cfg.Influx.URL != "" {
		influx := sink.NewInfluxClient(cfg.Influx, logger.Named("influx"))
		defer influx.Close()
		if err := influx.Ping(ctx); err != nil {
			// Writes are attempted anyway and counted as sink errors
			logger.Warn("influxdb not reachable", zap.Error(err))
		}
		sinks = influx.Sinks()
	} else {
		logger.Warn("influx.url not set, readings are only broadcast")
	}

	proc := pipeline.NewProcessor(pipelineCfg, sinks, logger.Named("pipeline"))
	hub := interpreter.NewHub(proc.Stats(), logger.Named("hub"))
	proc.OnReading(hub.Broadcast)

	p1Reader := port_reader.NewP1Reader(cfg.SerialDevice, cfg.Baudrate, logger)
	if err := p1Reader.Connect(); err != nil {
		logger.Error("failed to open P1 port", zap.Error(err))
		return err
	}
	defer p1Reader.Disconnect()

	server := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           hub.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("starting P1 Telemetry Interpreter API", zap.String("listen", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", zap.Error(err))
			stop()
		}
	}()

	runErr := port_reader.Run(ctx, p1Reader, proc, logger)
	if runErr != nil {
		logger.Error("error reading P1 port", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", zap.Error(err))
	}

	logger.Info("interpreter stopped", zap.Any("stats", proc.Stats().Snapshot()))
	return runErr
}
