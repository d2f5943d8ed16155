package main

import (
	"ble-linepos/internal/config"
	"ble-linepos/internal/config/components"
	"ble-linepos/internal/database/influx"
	"ble-linepos/internal/database/postgres"
	"ble-linepos/internal/database/postgres/repositories"
	"ble-linepos/internal/feeds"
	"ble-linepos/internal/interfaces"
	"ble-linepos/internal/logger"
	"ble-linepos/internal/models"
	"ble-linepos/internal/mq"
	"ble-linepos/internal/pipeline"
	"ble-linepos/internal/services"
	"ble-linepos/internal/session"
	"ble-linepos/internal/store"
	"ble-linepos/internal/web"
	"context"
	"flag"
	"fmt"
	"github.com/rs/zerolog/log"
	"os"
	"os/signal"
	"syscall"
)

type Application struct {
	config *config.WrapperImpl

	postgresDB *postgres.PostgresDB
	influxDB   *influx.InfluxDB

	anchorRepository *repositories.AnchorRepository
	anchorService    *services.AnchorService
	positionService  *services.PositionService

	mqttClient   *mq.Client
	topicManager *mq.TopicManager

	anchors  models.AnchorConfig
	store    *store.ObservationStore
	pipeline *pipeline.Pipeline
	feed     interfaces.IFeed
	session  *session.Session
	web      *web.Server

	shutdownChan chan os.Signal
	ctx          context.Context
	cancelFunc   context.CancelFunc
}

func main() {
	registerAnchors := flag.Bool("register-anchors", false, "write the ANCHOR_A_* / ANCHOR_B_* anchors to the survey table and exit")
	flag.Parse()

	app := &Application{}

	if err := app.initialize(*registerAnchors); err != nil {
		app.shutdown()
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}

	if *registerAnchors {
		err := app.anchorService.Register(app.ctx)
		app.shutdown()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to register anchors")
		}
		return
	}

	if err := app.run(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run application")
	}
}

func (app *Application) initialize(registerOnly bool) error {
	var err error

	app.ctx, app.cancelFunc = context.WithCancel(context.Background())

	app.config, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.NewLogger(app.config.LoggerConfig)
	log.Info().
		Str("component", "main").
		Str("service", app.config.ServiceConfig.Name).
		Str("version", app.config.ServiceConfig.Version).
		Msg("Setting up service...")

	app.shutdownChan = make(chan os.Signal, 1)
	signal.Notify(app.shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	if err := app.initializeDatabases(registerOnly); err != nil {
		return fmt.Errorf("error while initialize databases: %w", err)
	}

	if err := app.initializeAnchors(registerOnly); err != nil {
		return fmt.Errorf("error while resolving anchors: %w", err)
	}

	if registerOnly {
		return nil
	}

	if err := app.initializeMQTT(); err != nil {
		return fmt.Errorf("error while initializing MQTT: %w", err)
	}

	if err := app.initializePipeline(); err != nil {
		return fmt.Errorf("error while initializing pipeline: %w", err)
	}

	if err := app.initializeFeed(); err != nil {
		return fmt.Errorf("error while initializing feed: %w", err)
	}

	if err := app.initializeSession(); err != nil {
		return fmt.Errorf("error while initializing session: %w", err)
	}

	log.Info().Str("session_id", app.session.ID()).Msg("Successfully initialized application")
	return nil
}

func (app *Application) initializeDatabases(registerOnly bool) error {
	var err error

	if registerOnly || app.config.AnchorsConfig.Source == components.AnchorSourcePostgres {
		if err := app.config.PostgresConfig.Validate(); err != nil {
			return fmt.Errorf("postgres config: %w", err)
		}
		app.postgresDB, err = postgres.NewConnection(app.ctx, app.config.PostgresConfig, logger.GetLogger("postgres"))
		if err != nil {
			return fmt.Errorf("could not connect to PostgreSQL: %w", err)
		}
		app.anchorRepository = repositories.NewAnchorRepository(app.postgresDB.GetDB())

		log.Info().
			Str("component", "main").
			Str("host", app.config.PostgresConfig.Host).
			Msg("Successfully connected to PostgreSQL")
	}

	if !registerOnly && app.config.InfluxConfig.Enabled {
		app.influxDB, err = influx.NewConnection(app.ctx, app.config.InfluxConfig, logger.GetLogger("influx"))
		if err != nil {
			return fmt.Errorf("could not connect to InfluxDB: %w", err)
		}

		log.Info().
			Str("component", "main").
			Str("url", app.config.InfluxConfig.URL).
			Msg("Successfully connected to InfluxDB")
	}

	return nil
}

func (app *Application) initializeAnchors(registerOnly bool) error {
	var repository services.AnchorRepository
	if app.anchorRepository != nil {
		repository = app.anchorRepository
	}

	app.anchorService = services.NewAnchorService(app.config.AnchorsConfig, repository, logger.GetLogger("anchor-service"))
	if registerOnly {
		return nil
	}

	anchors, err := app.anchorService.Resolve(app.ctx)
	if err != nil {
		return err
	}
	app.anchors = anchors
	return nil
}

func (app *Application) initializeMQTT() error {
	if !app.config.MQTTConfig.Enabled {
		return nil
	}

	app.topicManager = mq.NewTopicManager(app.config.MQTTConfig.BaseTopic, logger.GetLogger("topic-manager"))
	app.mqttClient = mq.NewClient(app.config.MQTTConfig, logger.GetLogger("mq-client"))

	connectCtx, cancel := context.WithTimeout(app.ctx, app.config.MQTTConfig.ConnectTimeout)
	defer cancel()

	if err := app.mqttClient.Connect(connectCtx); err != nil {
		return fmt.Errorf("could not connect to MQTT broker: %w", err)
	}

	log.Info().
		Str("component", "main").
		Str("broker", app.config.MQTTConfig.GetUrl()).
		Msg("Successfully initialized MQTT client")

	return nil
}

func (app *Application) initializePipeline() error {
	var err error

	app.store = store.NewObservationStore()
	app.pipeline, err = pipeline.New(
		app.anchors,
		app.config.CalibrationConfig.ToCalibration(),
		app.store,
		logger.GetLogger("pipeline"),
	)
	if err != nil {
		return err
	}

	app.positionService = services.NewPositionService(logger.GetLogger("position-service"))
	if app.mqttClient != nil {
		app.positionService.AddEstimateSink(services.NewPositionPublisher(app.mqttClient, app.topicManager))
	}
	if app.influxDB != nil {
		writer := influx.NewPositionWriter(app.influxDB.GetWriteAPI(), logger.GetLogger("position-writer"))
		app.positionService.AddEstimateSink(writer)
		app.positionService.AddObservationSink(writer)
	}
	return nil
}

func (app *Application) initializeFeed() error {
	cfg := app.config.FeedConfig
	feedLogger := logger.GetLogger("feed")

	switch cfg.Type {
	case components.FeedTypeMQTT:
		app.feed = feeds.NewMQTTFeed(app.mqttClient, app.topicManager, feedLogger)
	case components.FeedTypeSerial:
		feed, err := feeds.NewSerialFeed(cfg.SerialPort, feeds.PortOptionsFromConfig(cfg), feedLogger)
		if err != nil {
			return err
		}
		app.feed = feed
	case components.FeedTypeReplay:
		app.feed = feeds.NewReplayFeed(cfg.ReplayFile, cfg.ReplayInterval, feedLogger)
	default:
		return fmt.Errorf("unknown feed type %q", cfg.Type)
	}

	log.Info().Str("component", "main").Str("feed", app.feed.Name()).Msg("Feed configured")
	return nil
}

func (app *Application) initializeSession() error {
	var err error

	app.session, err = session.New(session.Options{
		Feed:                app.feed,
		Store:               app.store,
		Pipeline:            app.pipeline,
		Estimates:           app.positionService,
		Observations:        app.positionService,
		DiagnosticsInterval: app.config.ServiceConfig.DiagnosticsInterval,
		Buffer:              app.config.FeedConfig.Buffer,
		Logger:              logger.GetLogger("session"),
	})
	if err != nil {
		return err
	}

	if app.config.WebConfig.Enabled {
		app.web = web.NewServer(app.config.WebConfig, func() interface{} {
			return app.session.Status()
		}, logger.GetLogger("web"))
		app.positionService.AddEstimateSink(app.web)
	}
	return nil
}

func (app *Application) run() error {
	sessionDone := make(chan error, 1)
	go func() {
		sessionDone <- app.session.Run(app.ctx)
	}()

	webDone := make(chan error, 1)
	if app.web != nil {
		go func() {
			webDone <- app.web.Start(app.ctx)
		}()
	}

	var runErr error
	webFinished := false
	select {
	case sig := <-app.shutdownChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		app.cancelFunc()
		runErr = <-sessionDone
	case runErr = <-sessionDone:
		log.Info().Msg("Session ended, shutting down application")
	case err := <-webDone:
		log.Error().Err(err).Msg("Web server stopped, shutting down application")
		webFinished = true
		app.cancelFunc()
		<-sessionDone
		runErr = err
	}

	app.cancelFunc()
	if app.web != nil && !webFinished {
		if err := <-webDone; err != nil {
			log.Error().Err(err).Msg("Web server shutdown failed")
		}
	}

	app.shutdown()
	return runErr
}

func (app *Application) shutdown() {
	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	if app.mqttClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), app.config.ServiceConfig.ShutdownTimeout)
		app.mqttClient.Disconnect(ctx)
		cancel()
	}

	if app.influxDB != nil {
		app.influxDB.Close()
	}

	if app.postgresDB != nil {
		if err := app.postgresDB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing PostgreSQL connection")
		}
	}

	log.Info().Msg("Shutdown complete")
}
