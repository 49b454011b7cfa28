package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/odontocare/clinic-api/internal/api"
	"github.com/odontocare/clinic-api/internal/appointment"
	"github.com/odontocare/clinic-api/internal/billing"
	"github.com/odontocare/clinic-api/internal/bot"
	"github.com/odontocare/clinic-api/internal/config"
	"github.com/odontocare/clinic-api/internal/db"
	"github.com/odontocare/clinic-api/internal/identity"
	"github.com/odontocare/clinic-api/internal/inventory"
	"github.com/odontocare/clinic-api/internal/patient"
	redisclient "github.com/odontocare/clinic-api/internal/redis"
)

const version = "1.0.0"

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api-server").Logger()
	log.Info().Msg("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("configured")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	schemaCtx, cancelSchema := context.WithTimeout(rootCtx, 30*time.Second)
	err = db.EnsureSchema(schemaCtx, pgPool)
	cancelSchema()
	if err != nil {
		log.Fatal().Err(err).Msg("schema setup error")
	}

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	locker := redisclient.NewRedisLocker(rdb, cfg.LockTTL)

	patientSvc := patient.NewService(patient.NewPgRepository(pgPool), log)
	appointmentSvc := appointment.NewService(appointment.NewPgRepository(pgPool), patientSvc, locker, cfg, log)
	billingSvc := billing.NewService(billing.NewPgRepository(pgPool), locker, log)
	inventorySvc := inventory.NewService(inventory.NewPgRepository(pgPool), log)
	identitySvc := identity.NewService(identity.NewPgRepository(pgPool), cfg, log)
	assistant := bot.New(appointmentSvc, billingSvc, inventorySvc, log)

	router := api.NewRouter(api.RouterConfig{
		Patients:     patientSvc,
		Appointments: appointmentSvc,
		Billing:      billingSvc,
		Inventory:    inventorySvc,
		Identity:     identitySvc,
		Bot:          assistant,
		PgPool:       pgPool,
		Redis:        rdb,
		JWTSecret:    cfg.JWTSecret,
		Env:          cfg.Env,
		Version:      version,
		Log:          log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()

	log.Info().Msg("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
