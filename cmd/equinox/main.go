// Equinox Core - Astronomical Device Bus
//
// This is the main entry point for the Equinox Core application.
// Equinox is a device property bus for astronomical instruments:
//   - Devices expose typed, stateful properties on a shared bus
//   - Clients observe snapshots and submit change requests
//   - Hot-plug slots bind hardware identities to live devices
//   - Property traffic can be mirrored to MQTT and InfluxDB
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/equinox-core/migrations"

	"github.com/nerrad567/equinox-core/internal/bus"
	"github.com/nerrad567/equinox-core/internal/drivers/ccdsim"
	"github.com/nerrad567/equinox-core/internal/export"
	"github.com/nerrad567/equinox-core/internal/hotplug"
	"github.com/nerrad567/equinox-core/internal/infrastructure/config"
	"github.com/nerrad567/equinox-core/internal/infrastructure/database"
	"github.com/nerrad567/equinox-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/equinox-core/internal/infrastructure/logging"
	"github.com/nerrad567/equinox-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/equinox-core/internal/profile"
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
	// This is the Go pattern for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Run the application
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Equinox Core",
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
	db, err := database.Open(ctx, database.Config{
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

	// Profile store for per-device configuration snapshots
	store := profile.NewSQLiteStore(db.DB)

	// The property bus every device and client attaches to
	core := bus.New(log.With("component", "bus"))
	log.Info("property bus ready")

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.Export.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.Export.MQTT)
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
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.Export.MQTT.Broker.Host, cfg.Export.MQTT.Broker.Port),
			"client_id", cfg.Export.MQTT.Broker.ClientID,
		)

		// Mirror property traffic to the broker as retained snapshots
		publisher := export.NewMQTTPublisher(mqttClient, export.PublisherOptions{
			QoS: byte(cfg.Export.MQTT.QoS),
			Log: log.With("component", "export"),
		})
		if attachErr := core.AttachClient(publisher, bus.Filter{}); attachErr != nil {
			return fmt.Errorf("attaching MQTT publisher: %w", attachErr)
		}
		defer func() {
			if detachErr := core.DetachClient(publisher.ID()); detachErr != nil {
				log.Error("detaching MQTT publisher", "error", detachErr)
			}
			if closeErr := publisher.Close(); closeErr != nil {
				log.Error("closing MQTT publisher", "error", closeErr)
			}
			stats := publisher.Stats()
			log.Info("MQTT publisher stopped",
				"published", stats.Published,
				"dropped", stats.Dropped,
			)
		}()
	} else {
		log.Info("MQTT export disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.Export.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.Export.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.Export.InfluxDB.URL,
			"org", cfg.Export.InfluxDB.Org,
			"bucket", cfg.Export.InfluxDB.Bucket,
		)

		// Record numeric property traffic as time-series points
		recorder := export.NewRecorder(influxClient)
		if attachErr := core.AttachClient(recorder, bus.Filter{}); attachErr != nil {
			return fmt.Errorf("attaching telemetry recorder: %w", attachErr)
		}
		defer func() {
			if detachErr := core.DetachClient(recorder.ID()); detachErr != nil {
				log.Error("detaching telemetry recorder", "error", detachErr)
			}
			log.Info("telemetry recorder stopped", "points", recorder.Points())
		}()
	} else {
		log.Info("InfluxDB export disabled")
	}

	// Start the simulated camera rig (if enabled)
	if cfg.Simulator.Enabled {
		registry, regErr := startSimulator(ctx, cfg, core, store, log)
		if regErr != nil {
			return fmt.Errorf("starting simulator: %w", regErr)
		}
		defer func() {
			log.Info("stopping hotplug registry")
			registry.Close()
		}()
	} else {
		log.Info("simulator disabled")
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. Hotplug registry (detaches every bound device)
	// 2. Telemetry recorder / InfluxDB (if enabled)
	// 3. MQTT publisher / MQTT (if enabled)
	// 4. Database

	log.Info("Equinox Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses EQUINOX_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("EQUINOX_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	// Check database
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	// Check MQTT (if enabled)
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	// Check InfluxDB (if enabled)
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// startSimulator plugs the configured camera units into a hotplug registry
// bound to the property bus.
//
// Parameters:
//   - ctx: Context the registry worker runs under
//   - cfg: Application configuration
//   - core: Property bus devices attach to
//   - store: Profile store handed to each camera
//   - log: Logger instance
//
// Returns:
//   - *hotplug.Registry: Running registry owning the simulated devices
//   - error: If the registry cannot be built
func startSimulator(ctx context.Context, cfg *config.Config, core *bus.Bus, store *profile.SQLiteStore, log *logging.Logger) (*hotplug.Registry, error) {
	source := ccdsim.NewSource()

	factory := ccdsim.Factory(ccdsim.Options{
		Store:               store,
		Log:                 log.With("component", "ccdsim"),
		Model:               cfg.Simulator.Model,
		Width:               cfg.Simulator.Width,
		Height:              cfg.Simulator.Height,
		TemperatureSensor:   cfg.Simulator.TemperatureSensor,
		StartTemperature:    cfg.Simulator.StartTemperature,
		TemperatureInterval: cfg.GetTemperatureInterval(),
		ExposureUnit:        cfg.GetExposureUnit(),
	})

	registry, err := hotplug.NewRegistry(core, source, factory, hotplug.Options{
		Capacity: cfg.Hotplug.Capacity,
		Settle:   cfg.GetSettleDelay(),
		Log:      log.With("component", "hotplug"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating hotplug registry: %w", err)
	}

	// Units plugged before Start are picked up by the initial scan.
	for _, id := range cfg.Simulator.Cameras {
		source.Plug(id)
	}
	registry.Start(ctx)

	log.Info("simulator started",
		"model", cfg.Simulator.Model,
		"cameras", len(cfg.Simulator.Cameras),
	)

	return registry, nil
}
