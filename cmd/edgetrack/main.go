// EdgeTrack Core - industrial edge temperature monitoring.
//
// The daemon samples one or more temperature sensors on a fixed interval,
// classifies each sample against alert and critical thresholds, writes a
// rotating data log, and streams readings to SQLite history, MQTT, InfluxDB,
// Prometheus and a REST/WebSocket API when those sinks are enabled.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/nerrad567/edgetrack-core/internal/acquisition/ads1115"
	"github.com/nerrad567/edgetrack-core/internal/api"
	"github.com/nerrad567/edgetrack-core/internal/auth"
	"github.com/nerrad567/edgetrack-core/internal/datalog"
	"github.com/nerrad567/edgetrack-core/internal/history"
	"github.com/nerrad567/edgetrack-core/internal/infrastructure/config"
	"github.com/nerrad567/edgetrack-core/internal/infrastructure/database"
	"github.com/nerrad567/edgetrack-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/edgetrack-core/internal/infrastructure/logging"
	"github.com/nerrad567/edgetrack-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/edgetrack-core/internal/metrics"
	"github.com/nerrad567/edgetrack-core/internal/monitor"
	"github.com/nerrad567/edgetrack-core/internal/sensor/temperature"
	"github.com/nerrad567/edgetrack-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

// shutdownTimeout bounds the metrics server and pruner shutdown.
const shutdownTimeout = 5 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options are the parsed command line flags.
type options struct {
	configPath  string
	ticks       int
	showVersion bool
	issueToken  string
	tokenRole   string
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := pflag.NewFlagSet("edgetrack", pflag.ContinueOnError)
	fs.StringVarP(&o.configPath, "config", "c", "", "path to config file (default $EDGETRACK_CONFIG or "+defaultConfigPath+")")
	fs.IntVarP(&o.ticks, "ticks", "n", 0, "stop after this many sampling ticks (0 runs until interrupted)")
	fs.BoolVarP(&o.showVersion, "version", "v", false, "print version and exit")
	fs.StringVar(&o.issueToken, "issue-token", "", "print an API token for this subject and exit")
	fs.StringVar(&o.tokenRole, "role", string(auth.RoleViewer), "role of the issued token (viewer or operator)")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.ticks < 0 {
		return o, fmt.Errorf("--ticks must not be negative")
	}
	if o.configPath == "" {
		o.configPath = getConfigPath()
	}
	return o, nil
}

// getConfigPath returns EDGETRACK_CONFIG if set, otherwise the default path.
func getConfigPath() string {
	if path := os.Getenv("EDGETRACK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// run is the application body, separated from main for testability.
//
// Shutdown order follows the defer chain: sinks first, then sensors, then the
// data log, so the final records and the "Logger shutting down" line land in
// the log.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Fprintf(stdout, "edgetrack %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	log := logging.Default()
	log.Info("starting EdgeTrack Core", "version", version, "commit", commit, "build_date", date)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", opts.configPath, "sensors", len(cfg.Sensors))

	if opts.issueToken != "" {
		return issueToken(stdout, cfg, opts)
	}

	dataLog, err := datalog.New(cfg.DataLog)
	if err != nil {
		return fmt.Errorf("opening data log: %w", err)
	}
	defer func() {
		if closeErr := dataLog.Close(); closeErr != nil {
			log.Error("error closing data log", "error", closeErr)
		}
	}()
	dataLog.SetLogger(log)
	dataLog.SetConsole(stdout)

	sensors, closeSensors, err := buildSensors(cfg.Sensors, log)
	if err != nil {
		return err
	}
	defer closeSensors()
	printConfiguration(stdout, cfg)

	var csvWriter *datalog.CSVWriter
	if cfg.Monitor.CSVPath != "" {
		csvWriter, err = datalog.NewCSVWriter(cfg.Monitor.CSVPath)
		if err != nil {
			return fmt.Errorf("opening CSV export: %w", err)
		}
		defer csvWriter.Close()
	}

	sinks, closeSinks, err := buildSinks(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSinks()

	mon, err := monitor.New(monitor.Options{
		Sensors:    sensors,
		DataLog:    dataLog,
		CSV:        csvWriter,
		Sinks:      sinks.named,
		Interval:   cfg.Interval(),
		StatsEvery: cfg.Monitor.StatsEvery,
		MaxTicks:   opts.ticks,
		Console:    stdout,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("creating monitor: %w", err)
	}

	if sinks.mqtt != nil {
		if err := sinks.mqtt.SubscribeCommands(mon.HandleCommand); err != nil {
			log.Warn("MQTT command subscription failed", "error", err)
		}
	}

	if cfg.API.Enabled {
		apiServer, err := api.New(api.Deps{
			Config:  cfg.API,
			Logger:  log,
			Sensors: mon,
			History: sinks.history,
			Hub:     sinks.hub,
			Version: version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := apiServer.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if err := apiServer.Close(); err != nil {
				log.Error("error stopping API server", "error", err)
			}
		}()
	}

	fmt.Fprintln(stdout, "Starting monitoring loop... (Press Ctrl+C to stop)")
	if err := mon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("monitor: %w", err)
	}

	fmt.Fprintln(stdout, "\nShutting down...")
	for _, s := range mon.Summary() {
		monitor.WriteStats(stdout, s.ID, s.Stats)
	}
	log.Info("EdgeTrack Core stopped", "ticks", mon.Ticks())
	return nil
}

// buildSensors creates every configured sensor. The returned cleanup
// releases sensors and any hardware they hold.
func buildSensors(cfgs []config.SensorConfig, log *logging.Logger) ([]*temperature.Sensor, func(), error) {
	var (
		sensors []*temperature.Sensor
		closers []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	for _, sc := range cfgs {
		var src temperature.Source
		switch sc.Source {
		case config.SourceADS1115:
			adc, err := ads1115.Open(sc.ADS1115)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("opening ADS1115 for sensor %s: %w", sc.ID, err)
			}
			closers = append(closers, func() { _ = adc.Close() })
			src = adc
		default:
			src = temperature.NewSimulator(sc.Seed)
		}

		s, err := temperature.New(sc.ID, sc.Temperature, temperature.WithSource(src))
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("initialising sensor %s: %w", sc.ID, err)
		}
		s.SetName(sc.Name)
		s.SetLocation(sc.Location)
		closers = append(closers, func() {
			if err := s.Cleanup(); err != nil {
				log.Error("error cleaning up sensor", "sensor_id", s.ID(), "error", err)
			}
		})
		sensors = append(sensors, s)
		log.Info("sensor initialised", "sensor_id", sc.ID, "source", sc.Source, "location", sc.Location)
	}
	return sensors, cleanup, nil
}

// sinkSet holds the connected sinks. The MQTT client, history repository
// and stream hub are kept by type so the command subscription and API can
// be wired once the monitor exists.
type sinkSet struct {
	named   []monitor.NamedSink
	mqtt    *mqtt.Client
	history history.Repository
	hub     *api.Hub
}

func (s *sinkSet) add(name string, sink monitor.Sink) {
	s.named = append(s.named, monitor.NamedSink{Name: name, Sink: sink})
}

// buildSinks connects every enabled sink.
func buildSinks(ctx context.Context, cfg *config.Config, log *logging.Logger) (*sinkSet, func(), error) {
	var (
		sinks   = &sinkSet{}
		closers []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*sinkSet, func(), error) {
		cleanup()
		return nil, nil, err
	}

	if cfg.History.Enabled {
		repo, closeHistory, err := openHistory(ctx, cfg, log)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, closeHistory)
		sinks.history = repo
		sinks.add("history", repo)
	}

	if cfg.Metrics.Enabled {
		collector := metrics.NewCollector()
		srv, err := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path, collector)
		if err != nil {
			return fail(err)
		}
		go func() {
			if serveErr := srv.Serve(); serveErr != nil {
				log.Error("metrics server stopped", "error", serveErr)
			}
		}()
		closers = append(closers, func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("error stopping metrics server", "error", err)
			}
		})
		sinks.add("metrics", collector)
		log.Info("metrics endpoint listening", "addr", srv.Addr(), "path", cfg.Metrics.Path)
	}

	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fail(fmt.Errorf("connecting to InfluxDB: %w", err))
		}
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		closers = append(closers, func() {
			log.Info("closing InfluxDB connection")
			_ = influxClient.Close()
		})
		sinks.add("influxdb", influxClient)
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	if cfg.MQTT.Enabled {
		client, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fail(fmt.Errorf("connecting to MQTT: %w", err))
		}
		client.SetLogger(log)
		client.SetOnConnect(func() { log.Info("MQTT connected") })
		closers = append(closers, func() {
			log.Info("disconnecting from MQTT")
			_ = client.Close()
		})
		sinks.mqtt = client
		sinks.add("mqtt", client)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"topic_prefix", client.Topics().Prefix(),
		)
	}

	if cfg.API.Enabled {
		sinks.hub = api.NewHub(cfg.API.WebSocket, log)
		sinks.add("websocket", sinks.hub)
	}

	return sinks, cleanup, nil
}

// openHistory opens and migrates the database and starts retention pruning.
func openHistory(ctx context.Context, cfg *config.Config, log *logging.Logger) (*history.SQLiteRepository, func(), error) {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx, migrations.Source()); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", db.Path())

	repo := history.NewSQLiteRepository(db.DB)

	var pruner *history.Pruner
	if retention := cfg.RetentionPeriod(); retention > 0 {
		pruner, err = history.NewPruner(repo, retention, cfg.History.PruneSchedule)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		pruner.SetLogger(log)
		pruner.Start()
		log.Info("history pruning scheduled", "schedule", cfg.History.PruneSchedule, "retention_days", cfg.History.RetentionDays)
	}

	closeFn := func() {
		if pruner != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			pruner.Stop(shutdownCtx)
			cancel()
		}
		log.Info("closing database")
		if err := db.Close(); err != nil {
			log.Error("error closing database", "error", err)
		}
	}
	return repo, closeFn, nil
}

// issueToken prints a signed API token and exits without starting the monitor.
func issueToken(w io.Writer, cfg *config.Config, opts options) error {
	role, err := auth.ParseRole(opts.tokenRole)
	if err != nil {
		return err
	}
	if cfg.API.JWT.Secret == "" {
		return fmt.Errorf("api.jwt.secret must be set to issue tokens")
	}
	token, err := auth.GenerateToken(opts.issueToken, role, cfg.API.JWT.Secret, cfg.API.TokenTTL())
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}
	fmt.Fprintln(w, token)
	return nil
}

func printConfiguration(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "EdgeTrack Core - Industrial Edge Monitoring")
	for _, sc := range cfg.Sensors {
		tc := sc.Temperature
		fmt.Fprintf(w, "\nSensor %s (%s, %s):\n", sc.ID, sc.Name, sc.Location)
		fmt.Fprintf(w, "  Min Temperature: %.1f°C\n", tc.MinTemp)
		fmt.Fprintf(w, "  Max Temperature: %.1f°C\n", tc.MaxTemp)
		fmt.Fprintf(w, "  Alert Threshold: %.1f°C\n", tc.AlertThreshold)
		fmt.Fprintf(w, "  Critical Threshold: %.1f°C\n", tc.CriticalThreshold)
		fmt.Fprintf(w, "  Sampling Rate: %d ms\n", tc.SamplingRateMS)
		fmt.Fprintf(w, "  Humidity Enabled: %s\n", yesNo(tc.EnableHumidity))
		fmt.Fprintf(w, "  Dew Point Enabled: %s\n", yesNo(tc.EnableDewPoint))
		fmt.Fprintf(w, "  Heat Index Enabled: %s\n", yesNo(tc.EnableHeatIndex))
	}
	fmt.Fprintln(w)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
