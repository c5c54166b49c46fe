package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"trade-clicker/internal/api"
	"trade-clicker/internal/console"
	"trade-clicker/internal/driver"
	"trade-clicker/internal/driver/robot"
	"trade-clicker/internal/engine"
	"trade-clicker/internal/events"
	"trade-clicker/internal/layout"
	"trade-clicker/internal/mail"
	"trade-clicker/internal/monitor"
	"trade-clicker/internal/order"
	"trade-clicker/internal/state"
	"trade-clicker/pkg/config"
	"trade-clicker/pkg/db"
	"trade-clicker/pkg/i18n"
	"trade-clicker/pkg/logger"
)

const buildVersion = "0.3.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New("info", true, nil)
		l.Fatal().Msgf(i18n.Get("ConfigLoadFailed"), err)
	}
	log := logger.New(cfg.LogLevel, cfg.LogPretty, nil)
	i18n.SetLanguage(i18n.Language(cfg.Language))
	log.Info().Str("version", buildVersion).Msg(i18n.M().Starting)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Journal (and the sqlite position store) live in one database.
	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Msgf(i18n.M().DBInitFailed, err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatal().Msgf(i18n.M().DBInitFailed, err)
	}

	store := buildStore(cfg, database, log)

	layouts, err := layout.NewProvider(cfg.LayoutPath, log)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.LayoutPath).Msg("invalid screen layout")
	}
	log.Info().Msgf(i18n.M().LayoutLoaded, cfg.LayoutPath)
	if cfg.WatchLayout {
		layouts.OnSwap(func(layout.Layout) { log.Info().Msg(i18n.M().LayoutReloaded) })
		if err := layouts.Watch(ctx); err != nil {
			log.Warn().Err(err).Msg("layout hot reload disabled")
		}
	}

	var drv driver.Driver
	if cfg.DryRun {
		log.Warn().Msg(i18n.M().DryRunMode)
		drv = driver.NewDryRun(log)
	} else {
		drv = robot.New(cfg.RobotSmooth)
	}

	bus := events.NewBus()
	metrics := monitor.NewSystemMetrics()

	exec := order.NewExecutor(drv, log)
	exec.MoveTime = func() time.Duration { return layouts.Current().Timing.Move }
	exec.Observe = metrics.ObservePlan

	handler := engine.NewHandler(engine.HandlerConfig{
		Store:   store,
		Runner:  exec,
		Layouts: layouts,
		Bus:     bus,
		Journal: database,
		Logger:  log,
	})
	if p, err := handler.Position(ctx); err == nil {
		log.Info().Str("position", string(p)).Msg("restored position")
	}

	dispatcher := engine.NewDispatcher(handler, cfg.QueueSize, log)
	dispatcher.Start(ctx)

	mon := &monitor.Monitor{
		Bus:     bus,
		Metrics: metrics,
		Sinks:   alertSinks(cfg, log),
		Log:     logger.Component(log, "monitor"),
	}
	monDone := mon.Start(ctx)

	var wg sync.WaitGroup

	if cfg.EnableHTTP {
		server := api.NewServer(dispatcher, api.Options{
			Bus:           bus,
			Journal:       database,
			Metrics:       metrics,
			Meta:          api.SystemMeta{DryRun: cfg.DryRun, Store: cfg.PositionStore, Version: buildVersion},
			WebhookSecret: cfg.WebhookSecret,
			CORSOrigins:   cfg.CORSOrigins,
			Logger:        log,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info().Msgf(i18n.M().ServerListening, cfg.Port)
			if err := server.Start(ctx, ":"+cfg.Port); err != nil {
				log.Error().Msgf(i18n.M().APIServerError, err)
				stop()
			}
		}()
	}

	if cfg.EnableMail {
		dial := mail.IMAPDialer(mail.IMAPConfig{
			Addr:      cfg.IMAPAddr,
			User:      cfg.IMAPUser,
			Password:  cfg.IMAPPassword,
			Mailbox:   cfg.IMAPMailbox,
			Processed: cfg.IMAPProcessedLabel,
			Timeout:   30 * time.Second,
		})
		poller := mail.NewPoller(dial, dispatcher, cfg.MailPollInterval, cfg.MailAllowedSenders, log)
		log.Info().Msgf(i18n.M().MailPollerOn, cfg.IMAPMailbox, cfg.MailPollInterval)
		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Run(ctx)
		}()
	}

	if cfg.EnableConsole {
		log.Info().Msg(i18n.M().ConsoleOn)
		con := console.New(os.Stdin, os.Stdout, dispatcher, log)
		// The console blocks on stdin, so it is not waited for on shutdown.
		go func() {
			if err := con.Run(ctx); err != nil {
				log.Error().Err(err).Msg("console input failed")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg(i18n.M().ShuttingDown)
	dispatcher.Close()
	wg.Wait()
	<-dispatcher.Done()
	<-monDone
}

func buildStore(cfg *config.Config, database *db.Database, log zerolog.Logger) state.Store {
	switch cfg.PositionStore {
	case "sqlite":
		log.Info().Msgf(i18n.M().StoreSelected, "sqlite "+cfg.DBPath)
		return state.NewDBStore(database, log)
	default:
		log.Info().Msgf(i18n.M().StoreSelected, cfg.PositionFile)
		return state.NewFileStore(cfg.PositionFile, log)
	}
}

func alertSinks(cfg *config.Config, log zerolog.Logger) []monitor.AlertSink {
	sinks := []monitor.AlertSink{monitor.LogSink{Log: logger.Component(log, "alert")}}
	if cfg.SMTPHost == "" {
		return sinks
	}
	ms, err := monitor.NewMailSink(monitor.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.AlertFrom,
		To:       cfg.AlertTo,
	})
	if err != nil {
		log.Warn().Err(err).Msg("smtp alerts disabled")
		return sinks
	}
	return append(sinks, ms)
}
