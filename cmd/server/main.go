// Command server runs the expense assistant: the REST API and, when a bot
// token is configured, the Telegram long-polling adapter.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-expense-assistant/internal/config"
	httpapi "github.com/tbourn/go-expense-assistant/internal/http"
	"github.com/tbourn/go-expense-assistant/internal/llm"
	"github.com/tbourn/go-expense-assistant/internal/observability"
	"github.com/tbourn/go-expense-assistant/internal/repo"
	"github.com/tbourn/go-expense-assistant/internal/services"
	"github.com/tbourn/go-expense-assistant/internal/sysutil"
	"github.com/tbourn/go-expense-assistant/internal/telegram"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetupLogging(cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)
	ver := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)

	if err := run(cfg, ver); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg config.Config, ver string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	model := llm.New(llm.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})
	assistant := &services.Assistant{
		Classifier:     &services.Classifier{LLM: model, Temperature: float32(cfg.LLM.Temperature)},
		Dispatcher:     &services.Dispatcher{DB: db, Repo: repo.Ledger{}},
		MaxPromptRunes: cfg.MaxPromptRunes,
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, assistant, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	var bot *telegram.Bot
	if cfg.Telegram.Enabled() {
		api, err := telegram.Dial(cfg.Telegram.Token)
		if err != nil {
			return err
		}
		log.Info().Str("bot", api.Self.UserName).Msg("telegram bot authorized")
		bot = telegram.New(api, assistant, cfg.Telegram)
	} else {
		log.Info().Msg("TELEGRAM_BOT_TOKEN not set; telegram adapter disabled")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", ver).
			Str("model", model.Model()).
			Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("shutting down")
		return srv.Shutdown(sctx)
	})

	if bot != nil {
		g.Go(func() error { return bot.Run(gctx) })
	}

	return g.Wait()
}
