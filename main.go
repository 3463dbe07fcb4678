package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/invoice-bot-poc/server/internal/core"
	"github.com/invoice-bot-poc/server/internal/invoice/clients"
	"github.com/invoice-bot-poc/server/internal/invoice/dialogue"
	"github.com/invoice-bot-poc/server/internal/invoice/extractor"
	"github.com/invoice-bot-poc/server/internal/invoice/model"
	"github.com/invoice-bot-poc/server/internal/invoice/render"
	"github.com/invoice-bot-poc/server/internal/invoice/repo"
	"github.com/invoice-bot-poc/server/internal/invoice/storage"
	"github.com/invoice-bot-poc/server/internal/transport/webhook"
	logx "github.com/invoice-bot-poc/server/pkg/logger"
	pkgpostgres "github.com/invoice-bot-poc/server/pkg/postgres"
	pkgredis "github.com/invoice-bot-poc/server/pkg/redis"
)

// AppConfig defines all configurable parameters of the bot,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel        string `envconfig:"LOG_LEVEL"`
	Addr            string `envconfig:"HTTP_ADDR" default:":5000"`
	PublicBaseURL   string `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:5000"`
	ShutdownTimeout string `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// Infrastructure
	Redis    pkgredis.Config
	Postgres pkgpostgres.Config

	// Bot configs
	Session   model.SessionConfig
	Extractor model.ExtractorConfig
	Invoice   model.InvoiceConfig
	Storage   model.StorageConfig
	Webhook   model.WebhookConfig
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(".env"); err != nil {
		logx.Warn().Err(err).Msg("Could not load .env file")
	}

	// Load structured config from env
	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		logx.Fatal().Err(err).Msg("Failed to process environment config")
	}

	logx.Init(logx.LoggerOpts{
		Environment: core.ParseEnvironment(envCfg.Environment),
		Level:       envCfg.LogLevel,
	})

	rdb, err := envCfg.Redis.New()
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to initialise Redis client")
	}
	defer rdb.Close()
	logx.Info().Msg("Connected to Redis successfully")

	sessionTTL := mustDuration("SESSION_TTL", envCfg.Session.TTL)
	lockTTL := mustDuration("SESSION_LOCK_TTL", envCfg.Session.LockTTL)
	lockWait := mustDuration("SESSION_LOCK_WAIT", envCfg.Session.LockWait)

	clientRepo, closeClients := buildClientRepository(ctx, envCfg, rdb)
	defer closeClients()

	ext, err := extractor.New(ctx, envCfg.Extractor)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build item extractor")
	}

	docs, closeDocs, err := storage.New(ctx, envCfg.Storage, envCfg.PublicBaseURL)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build document store")
	}
	defer func() {
		if err := closeDocs(); err != nil {
			logx.Warn().Err(err).Msg("Failed to close document store")
		}
	}()

	machine, err := dialogue.NewMachine(dialogue.Deps{
		Sessions:  repo.NewRedisSessionRepository(rdb, sessionTTL),
		Clients:   clients.NewDirectory(clientRepo),
		Locker:    repo.NewRedisLocker(pkgredis.NewLocker(rdb), lockTTL, lockWait),
		Extractor: ext,
		Renderer: render.NewPDFRenderer(render.Seller{
			Name:    envCfg.Invoice.SellerName,
			Address: envCfg.Invoice.SellerAddress,
			GSTIN:   envCfg.Invoice.SellerGSTIN,
		}),
		Documents: docs,
	}, dialogue.Config{
		TaxRatePercent: decimal.NewFromFloat(envCfg.Invoice.TaxRate),
		State:          envCfg.Invoice.State,
		ReverseCharge:  envCfg.Invoice.ReverseCharge,
		Template:       envCfg.Invoice.Template,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build dialogue")
	}

	srv := &http.Server{
		Addr:              envCfg.Addr,
		Handler:           webhook.NewHandler(machine, docs, webhookOptions(envCfg)).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logx.Info().Str("addr", envCfg.Addr).Msg("Invoice bot listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	logx.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), mustDuration("SHUTDOWN_TIMEOUT", envCfg.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logx.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

// buildClientRepository picks the client directory backend. Postgres needs DATABASE_URL.
func buildClientRepository(ctx context.Context, cfg AppConfig, rdb *redis.Client) (model.ClientRepository, func()) {
	if cfg.Invoice.ClientStore != "postgres" {
		return repo.NewRedisClientRepository(rdb), func() {}
	}
	if !cfg.Postgres.Enabled() {
		logx.Fatal().Msg("INVOICE_CLIENT_STORE=postgres requires DATABASE_URL")
	}

	pool, err := cfg.Postgres.NewPool(ctx)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to connect to Postgres")
	}
	pg := repo.NewPostgresClientRepository(pool)
	if err := pg.Migrate(ctx); err != nil {
		pool.Close()
		logx.Fatal().Err(err).Msg("Failed to migrate client table")
	}
	logx.Info().Msg("Client directory backed by Postgres")
	return pg, pool.Close
}

// webhookOptions refuses to start without a Twilio auth token unless signature
// checks are explicitly switched off.
func webhookOptions(cfg AppConfig) webhook.Options {
	if !cfg.Webhook.ValidateSignature {
		logx.Warn().Msg("Twilio signature validation is disabled")
		return webhook.Options{PublicBaseURL: cfg.PublicBaseURL}
	}
	if cfg.Webhook.TwilioAuthToken == "" {
		logx.Fatal().Msg("TWILIO_AUTH_TOKEN is required unless TWILIO_VALIDATE_SIGNATURE=false")
	}
	return webhook.Options{TwilioAuthToken: cfg.Webhook.TwilioAuthToken, PublicBaseURL: cfg.PublicBaseURL}
}

func mustDuration(name, v string) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		logx.Fatal().Err(err).Str("value", v).Msgf("Invalid %s", name)
	}
	return d
}
