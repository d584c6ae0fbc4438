// Gray Logic Gather bridge
//
// graylogic-gather connects a Gather virtual office space to Gray Logic.
// It keeps one realtime session to the space, turns presence changes,
// doorbell rings and waves into automation events on MQTT and the
// WebSocket API, and accepts connect/disconnect commands from both.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	_ "github.com/nerrad567/gray-logic-gather/migrations"

	"github.com/nerrad567/gray-logic-gather/internal/api"
	"github.com/nerrad567/gray-logic-gather/internal/auth"
	"github.com/nerrad567/gray-logic-gather/internal/automation"
	"github.com/nerrad567/gray-logic-gather/internal/bridges/gather"
	"github.com/nerrad567/gray-logic-gather/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-gather/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-gather/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-gather/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-gather/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-gather/internal/notify"
	"github.com/nerrad567/gray-logic-gather/internal/realtime"
	"github.com/nerrad567/gray-logic-gather/internal/settings"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	configEnv         = "GRAYLOGIC_GATHER_CONFIG"

	// shutdownTimeout bounds the final disconnect from the space.
	shutdownTimeout = 10 * time.Second
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options are the command-line flags.
type options struct {
	configPath  string
	issueToken  string
	role        string
	tokenTTL    time.Duration
	showVersion bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := pflag.NewFlagSet("graylogic-gather", pflag.ContinueOnError)
	fs.StringVarP(&o.configPath, "config", "c", getConfigPath(), "path to the YAML configuration file (env "+configEnv+")")
	fs.StringVar(&o.issueToken, "issue-token", "", "print an API bearer token for this subject and exit")
	fs.StringVar(&o.role, "role", string(auth.RoleOperator), "role of the issued token: viewer, operator or admin")
	fs.DurationVar(&o.tokenTTL, "ttl", 24*time.Hour, "lifetime of the issued token")
	fs.BoolVarP(&o.showVersion, "version", "v", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return o, nil
}

// getConfigPath returns GRAYLOGIC_GATHER_CONFIG if set, otherwise the default.
func getConfigPath() string {
	if path := os.Getenv(configEnv); path != "" {
		return path
	}
	return defaultConfigPath
}

// run is the application logic, separated from main for testability.
func run(ctx context.Context, args []string, out io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Fprintf(out, "graylogic-gather %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if opts.issueToken != "" {
		return issueToken(out, cfg, opts)
	}

	log := logging.New(cfg.Logging, version)
	defer log.Close() //nolint:errcheck // nothing left to report to
	log.Info("starting Gray Logic Gather bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
		"config", opts.configPath,
	)

	return serve(ctx, cfg, log)
}

// issueToken prints a signed API token for the configured secret.
func issueToken(out io.Writer, cfg *config.Config, opts options) error {
	token, err := auth.GenerateAccessToken(opts.issueToken, auth.Role(opts.role), cfg.Security.JWT.Secret, opts.tokenTTL)
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}
	fmt.Fprintln(out, token)
	return nil
}

// serve wires every component, connects to the space and blocks until ctx
// is cancelled. Components shut down in reverse order of creation.
func serve(ctx context.Context, cfg *config.Config, log *logging.Logger) error { //nolint:gocognit,funlen // linear startup sequence
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", db.Path())

	store := settings.NewStore(db.DB, settings.Options{
		Passphrase: cfg.Security.Credentials.Passphrase,
		Defaults: gather.Settings{
			APIKey:     cfg.Gather.APIKey,
			SpaceID:    cfg.Gather.SpaceID,
			AvatarName: cfg.Gather.AvatarName,
		},
	})
	if cfg.Security.Credentials.Passphrase == "" {
		log.Warn("credential passphrase not set, API keys cannot be stored through the API")
	}

	// The broker publishes the bridge's offline health message if we vanish.
	will, err := json.Marshal(gather.NewLWTMessage(gather.Protocol))
	if err != nil {
		return fmt.Errorf("encoding LWT: %w", err)
	}
	mqttClient, err := mqtt.Connect(cfg.MQTT, mqtt.WithWill(gather.HealthTopic(), will))
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
	mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	var metrics notify.MetricsWriter
	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) { log.Error("InfluxDB write error", "error", err) })
		metrics = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	hub := api.NewHub(cfg.WebSocket, log.With("component", "websocket"))

	var bridge *gather.Bridge
	dispatcher := notify.New(notify.Options{
		MQTT:      mqttClient,
		Hub:       hub,
		Metrics:   metrics,
		Logger:    log.With("component", "notify"),
		SpaceID:   func() string { return bridge.SpaceID() },
		QueueSize: cfg.Gather.QueueSize,
	})
	dispatcher.Start()
	defer dispatcher.Close()

	gatherLog := log.With("component", "gather")
	bridge, err = gather.NewBridge(gather.BridgeOptions{
		Settings: store,
		Sessions: gather.RealtimeSessions(realtime.Config{
			Endpoint:         cfg.Gather.Endpoint,
			HandshakeTimeout: cfg.HandshakeTimeout(),
			PingInterval:     time.Duration(cfg.WebSocket.PingInterval) * time.Second,
			PongTimeout:      time.Duration(cfg.WebSocket.PongTimeout) * time.Second,
		}, gatherLog),
		Notifier:  dispatcher,
		URLPrefix: cfg.Gather.URLPrefix,
		Logger:    gatherLog,
	})
	if err != nil {
		return fmt.Errorf("creating gather bridge: %w", err)
	}

	reporter := gather.NewHealthReporter(gather.HealthReporterConfig{
		BridgeID:   gather.Protocol,
		Version:    version,
		Interval:   cfg.HealthInterval(),
		Publisher:  mqttClient,
		Source:     bridge,
		Deliveries: dispatcher,
	})
	reporter.SetLogger(gatherLog)
	if err := reporter.PublishStarting(); err != nil {
		log.Warn("publishing starting health failed", "error", err)
	}
	reporter.Start(ctx)
	defer reporter.Stop()

	cards := automation.NewRegistry()
	cards.SetLogger(log.With("component", "automation"))
	automation.RegisterSpaceCards(cards, bridge)

	commands := automation.NewCommandRouter(cards, mqttClient, log.With("component", "commands"))
	if err := commands.Start(); err != nil {
		return fmt.Errorf("starting command router: %w", err)
	}
	defer commands.Stop()

	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Bridge:   bridge,
		Cards:    cards,
		Settings: store,
		Hub:      hub,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	// A failed first connect is reported, not fatal: the space can be
	// connected later through the connect action once settings are fixed.
	if err := bridge.Start(ctx, cfg.Gather.ConnectOnStart); err != nil {
		log.Error("connecting to space failed", "error", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if stopErr := bridge.Stop(stopCtx); stopErr != nil {
			log.Error("error disconnecting from space", "error", stopErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal", "api", server.Addr())
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")
	return nil
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when InfluxDB is disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
