// kioskd - wall-mounted kiosk device controller
//
// This is the main entry point for the kioskd daemon. It drives a single
// always-on kiosk device: audio routing, bluetooth speakers, YouTube
// playback, display dimming, weather display, and the local control panel,
// with optional MQTT and InfluxDB integrations for the wider home network.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"kioskd/internal/api"
	"kioskd/internal/audio"
	"kioskd/internal/bluetooth"
	"kioskd/internal/bus"
	"kioskd/internal/dimmer"
	"kioskd/internal/infrastructure/config"
	"kioskd/internal/infrastructure/influxdb"
	"kioskd/internal/infrastructure/logging"
	"kioskd/internal/infrastructure/mqtt"
	"kioskd/internal/logbook"
	"kioskd/internal/mediaplayer"
	"kioskd/internal/mqttbridge"
	"kioskd/internal/netinfo"
	"kioskd/internal/settings"
	"kioskd/internal/state"
	"kioskd/internal/telemetry"
	"kioskd/internal/weather"
	"kioskd/internal/worker"
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
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting kioskd",
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

	// Shared state store and message queues
	store := state.New()
	channels := bus.NewChannels()

	recorder, err := logbook.NewRecorder(channels.Log, log)
	if err != nil {
		return fmt.Errorf("creating recorder: %w", err)
	}

	// Logbook aggregator: the log queue's only consumer. Created first and
	// closed last so everything else can journal during shutdown.
	aggregator, err := logbook.New(logbook.Deps{
		Queue:         channels.Log,
		Dir:           cfg.Paths.LogDir,
		RetentionDays: cfg.Paths.LogRetentionDays,
		Logger:        log,
	})
	if err != nil {
		return fmt.Errorf("creating logbook: %w", err)
	}
	aggregator.Start()
	defer func() {
		log.Info("closing logbook")
		if closeErr := aggregator.Close(); closeErr != nil {
			log.Error("error closing logbook", "error", closeErr)
		}
	}()

	// Settings manager: load-with-merge the persisted settings document and
	// apply it to the store before any worker starts.
	settingsMgr, err := settings.NewManager(settings.Deps{
		Store:        store,
		Reload:       channels.ConfigReload,
		Recorder:     recorder,
		SettingsPath: cfg.Paths.SettingsFile,
		ThemesDir:    cfg.Paths.ThemesDir,
		Logger:       log,
	})
	if err != nil {
		return fmt.Errorf("creating settings manager: %w", err)
	}
	if _, err := settingsMgr.Bootstrap(); err != nil {
		return fmt.Errorf("bootstrapping settings: %w", err)
	}
	log.Info("settings loaded", "path", settingsMgr.Path())

	// Worker supervisor: sole consumer of the command queue, routes each
	// command to the worker owning its domain.
	supervisor, err := worker.NewSupervisor(worker.SupervisorOptions{
		Commands: channels.Command,
		Settings: settingsMgr,
		Recorder: recorder,
		Logger:   log,
		Grace:    cfg.GetGracePeriod(),
	})
	if err != nil {
		return fmt.Errorf("creating supervisor: %w", err)
	}
	if err := registerWorkers(supervisor, cfg, store, channels, recorder, settingsMgr, log); err != nil {
		return fmt.Errorf("registering workers: %w", err)
	}
	supervisor.Start(ctx)
	defer func() {
		log.Info("stopping workers")
		supervisor.Stop()
	}()

	// Watch the settings file so manual edits are picked up live.
	watcher, err := settings.NewWatcher(settings.WatcherOptions{
		Manager: settingsMgr,
		Logger:  log,
	})
	if err != nil {
		return fmt.Errorf("creating settings watcher: %w", err)
	}
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("starting settings watcher: %w", err)
	}
	defer func() {
		log.Info("stopping settings watcher")
		if closeErr := watcher.Close(); closeErr != nil {
			log.Error("error closing settings watcher", "error", closeErr)
		}
	}()

	// MQTT bridge (optional). The kiosk is fully functional without the
	// broker, so a failed connect degrades rather than aborting startup.
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		client, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			log.Warn("MQTT unavailable, continuing without bridge", "error", mqttErr)
		} else {
			mqttClient = client
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
			mqttClient.SetOnConnect(func() {
				log.Info("MQTT reconnected")
			})
			mqttClient.SetOnDisconnect(func(err error) {
				log.Warn("MQTT disconnected", "error", err)
			})

			bridge, bridgeErr := mqttbridge.New(mqttbridge.Options{
				Client:         mqttClient,
				Topics:         mqttClient.TopicBuilder(),
				Store:          store,
				Commands:       channels.Command,
				Recorder:       recorder,
				StatusInterval: cfg.GetStatusInterval(),
				QoS:            byte(cfg.MQTT.QoS),
				Logger:         log,
			})
			if bridgeErr != nil {
				return fmt.Errorf("creating MQTT bridge: %w", bridgeErr)
			}
			if startErr := bridge.Start(); startErr != nil {
				return fmt.Errorf("starting MQTT bridge: %w", startErr)
			}
			defer func() {
				log.Info("stopping MQTT bridge")
				bridge.Stop()
			}()
		}
	} else {
		log.Info("MQTT disabled")
	}

	// Telemetry sampler (optional). Same degradation policy as MQTT.
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		client, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			log.Warn("InfluxDB unavailable, continuing without telemetry", "error", influxErr)
		} else {
			influxClient = client
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

			sampler, samplerErr := telemetry.New(telemetry.Deps{
				Store:    store,
				Writer:   influxClient,
				Interval: cfg.GetSampleInterval(),
				Logger:   log,
			})
			if samplerErr != nil {
				return fmt.Errorf("creating telemetry sampler: %w", samplerErr)
			}
			aggregator.RegisterSink(sampler)
			sampler.Start()
			defer func() {
				log.Info("stopping telemetry sampler")
				sampler.Close()
			}()
		}
	} else {
		log.Info("InfluxDB disabled")
	}

	// API server: control panel, REST endpoints and the WebSocket hub.
	apiServer, err := api.New(api.Deps{
		Config:   cfg.Web,
		Logger:   log,
		Store:    store,
		Commands: channels.Command,
		Weather:  channels.Weather,
		Reload:   channels.ConfigReload,
		Settings: settingsMgr,
		Recorder: recorder,
		Logs:     aggregator,
		Workers:  supervisor,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	// Journal entries stream to connected panels over WebSocket.
	aggregator.RegisterSink(apiServer)
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify the connections that survived startup are healthy
	if err := healthCheck(ctx, mqttClient, influxClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	recorder.Info("Kiosk started (version %s)", version)
	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	recorder.Info("Kiosk shutting down")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Telemetry sampler, then InfluxDB
	// 3. MQTT bridge, then MQTT client
	// 4. Settings watcher
	// 5. Worker supervisor
	// 6. Logbook aggregator

	return nil
}

// registerWorkers constructs the domain workers and attaches each to its
// command domain. The netinfo worker takes no commands and registers with
// an empty domain.
func registerWorkers(
	supervisor *worker.Supervisor,
	cfg *config.Config,
	store *state.Store,
	channels *bus.Channels,
	recorder *logbook.Recorder,
	settingsMgr *settings.Manager,
	log *logging.Logger,
) error {
	audioWorker, err := audio.New(audio.Deps{
		Store:    store,
		Recorder: recorder,
		Settings: settingsMgr,
		Tool:     cfg.Tools.Pactl,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("creating audio worker: %w", err)
	}
	if err := supervisor.Register("audio", audioWorker); err != nil {
		return err
	}

	btWorker, err := bluetooth.New(bluetooth.Deps{
		Store:    store,
		Recorder: recorder,
		Tool:     cfg.Tools.Bluetoothctl,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("creating bluetooth worker: %w", err)
	}
	if err := supervisor.Register("bluetooth", btWorker); err != nil {
		return err
	}

	playerWorker, err := mediaplayer.New(mediaplayer.Deps{
		Store:    store,
		Recorder: recorder,
		Tool:     cfg.Tools.Mpv,
		Socket:   cfg.Tools.MpvSocket,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("creating media player worker: %w", err)
	}
	if err := supervisor.Register("youtube", playerWorker); err != nil {
		return err
	}

	dimmerWorker, err := dimmer.New(dimmer.Deps{
		Store:     store,
		Recorder:  recorder,
		Backlight: &dimmer.Backlight{Xrandr: cfg.Tools.Xrandr},
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("creating dimmer worker: %w", err)
	}
	if err := supervisor.Register("dimming", dimmerWorker); err != nil {
		return err
	}

	netWorker, err := netinfo.New(netinfo.Deps{
		Store:  store,
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("creating network worker: %w", err)
	}
	if err := supervisor.Register("", netWorker); err != nil {
		return err
	}

	weatherWorker, err := weather.New(weather.Deps{
		Store:    store,
		Updates:  channels.Weather,
		Recorder: recorder,
		CacheDir: cfg.Paths.CacheDir,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("creating weather worker: %w", err)
	}
	return supervisor.Register("weather", weatherWorker)
}

// healthCheck verifies the startup connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - mqttClient: MQTT client to check (nil when disabled or degraded)
//   - influxClient: InfluxDB client to check (nil when disabled or degraded)
//   - apiServer: API server to check
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, influxClient *influxdb.Client, apiServer *api.Server) error {
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return apiServer.HealthCheck(ctx)
}

// getConfigPath returns the configuration file path.
// Uses KIOSKD_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("KIOSKD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
