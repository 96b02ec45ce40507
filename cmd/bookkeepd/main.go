package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bookkeep/internal/amqp"
	"bookkeep/internal/config"
	apphttp "bookkeep/internal/http"
	"bookkeep/internal/ledger"
	applog "bookkeep/internal/log"
	"bookkeep/internal/notify"
	"bookkeep/internal/services"
	"bookkeep/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	// Choose the journal backend. Memory mode is explicitly ephemeral: a
	// restart loses every entry and every pending notification.
	var journal ledger.Journal
	switch cfg.DataBackend {
	case "sqlite":
		sqliteJournal, err := storage.NewSQLiteJournal(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to open SQLite journal",
				applog.FieldError, err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		journal = sqliteJournal
		logger.Info("Initialized SQLite journal",
			applog.FieldBackend, cfg.DataBackend, "path", cfg.SQLiteDBPath)
	default:
		logger.Info("Running with in-memory ledger, entries will not survive a restart",
			applog.FieldBackend, cfg.DataBackend)
	}

	// Notification sink: AMQP when a broker is configured, log stub otherwise.
	var sink notify.Sink = notify.LogSink{}
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		sink = amqp.NewSink(amqpClient)
		logger.Info("AMQP notification sink initialized",
			"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled, notifications go to the log sink")
	}

	dispatcher := notify.NewDispatcher(sink, cfg.NotifyBufferSize, cfg.NotifyTimeout)
	engine := ledger.NewEngine(journal, dispatcher, cfg.StrictValidation)

	if journal != nil {
		replayCtx, replayCancel := context.WithTimeout(context.Background(), 30*time.Second)
		records, err := journal.Replay(replayCtx)
		replayCancel()
		if err != nil {
			logger.Error("Failed to replay journal", applog.FieldError, err)
			os.Exit(1)
		}
		engine.Restore(records)
		logger.Info("Journal replayed",
			applog.FieldOperation, applog.OpReplay, "records", len(records))
	}

	svc := services.NewLedgerService(engine, journal, dispatcher, amqpClient)
	srv := apphttp.NewServer(":"+cfg.Port, svc, cfg.SummaryCacheTTL)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received",
			applog.FieldOperation, applog.OpShutdown, "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := svc.Close(); err != nil {
			logger.Error("Service shutdown error", applog.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting bookkeep server",
		applog.FieldOperation, applog.OpStartup,
		"port", cfg.Port,
		applog.FieldBackend, cfg.DataBackend,
		"strict_validation", cfg.StrictValidation)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
