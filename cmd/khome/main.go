// KHome Core - Home Automation Hub
//
// This is the main entry point for the KHome Core application. KHome
// connects ESP8266-class agent devices over MQTT, keeps a registry of
// their modules, runs processing actors over the signal stream and
// exposes a management API for operator frontends.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/khome-core/migrations"

	"github.com/nerrad567/khome-core/internal/actors"
	"github.com/nerrad567/khome-core/internal/hub"
	"github.com/nerrad567/khome-core/internal/infrastructure/config"
	"github.com/nerrad567/khome-core/internal/infrastructure/database"
	"github.com/nerrad567/khome-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/khome-core/internal/infrastructure/logging"
	"github.com/nerrad567/khome-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/khome-core/internal/inventory"
	"github.com/nerrad567/khome-core/internal/scheduler"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting KHome Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
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
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Build the inventory over its SQLite repository
	repo := inventory.NewSQLiteRepository(db.DB)
	inv := inventory.New(repo)
	inv.SetLogger(log)

	// The scheduler feeds fired jobs straight into signal dispatch
	sch := scheduler.New(inv.HandleValue)
	sch.SetLogger(log)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Wire the hub. The actor factory is installed after construction:
	// the hub itself is the signal courier actors publish through.
	core := hub.New(hub.Options{
		Inventory: inv,
		Bus:       mqttClient,
		Scheduler: sch,
		Repo:      repo,
		Logger:    log,
	})

	deps := actors.Deps{
		Signals:       core,
		Bus:           core,
		Sensors:       repo,
		Scheduler:     sch,
		ThingSpeakURL: cfg.ThingSpeak.URL,
		Logger:        log,
	}
	if influxClient != nil {
		deps.Metrics = influxClient
	}
	core.SetFactory(actors.New(deps))

	if startErr := core.Start(ctx); startErr != nil {
		return fmt.Errorf("starting hub: %w", startErr)
	}
	defer func() {
		log.Info("stopping hub")
		core.Stop()
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	stats := db.Stats()
	log.Info("all health checks passed", "db_open_conns", stats.OpenConnections)

	// Record the start in the time-series backend so restarts show up
	// next to the sensor data.
	if influxClient != nil {
		influxClient.WritePoint("core_status",
			map[string]string{"client_id": cfg.MQTT.Broker.ClientID},
			map[string]interface{}{"online": true, "version": version},
		)
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. Hub (scheduler tick)
	// 2. InfluxDB (if enabled)
	// 3. MQTT
	// 4. Database

	log.Info("KHome Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses KHOME_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("KHOME_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	// Check database
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	// Check MQTT
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	// Check InfluxDB (if enabled)
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
