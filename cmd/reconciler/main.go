// The reconciler runs the two background sweeps of the booking engine:
// cancelling pending appointments whose payment window lapsed, and
// completing confirmed appointments whose start has passed.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/symptomcheck/scheduling-engine/internal/availability"
	"github.com/symptomcheck/scheduling-engine/internal/booking"
	"github.com/symptomcheck/scheduling-engine/internal/config"
	"github.com/symptomcheck/scheduling-engine/internal/db"
	"github.com/symptomcheck/scheduling-engine/internal/directory"
	redisclient "github.com/symptomcheck/scheduling-engine/internal/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("config load error")
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("component", "reconciler").Logger()
	logger.Info().Str("env", cfg.Env).Dur("interval", cfg.SweepInterval).Msg("reconciler starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing redis")
		}
	}()
	logger.Info().Msg("connected to Redis")

	repo := booking.NewPgRepository(pgPool)
	windows := availability.NewPgStore(pgPool)
	catalog := directory.NewPgDirectory(pgPool)
	locker := redisclient.NewRedisDoctorLocker(rdb, cfg.LockTTL)
	engine := booking.NewEngine(repo, windows, catalog, locker, cfg, logger)

	// Run once at startup
	runOnce(rootCtx, engine, logger)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping reconciler")
			return
		case <-ticker.C:
			runOnce(rootCtx, engine, logger)
		}
	}
}

func runOnce(ctx context.Context, engine *booking.Engine, logger zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	if err := engine.ExpireUnpaid(runCtx); err != nil {
		logger.Error().Err(err).Msg("expiry sweep error")
	}
	if err := engine.CompleteElapsed(runCtx); err != nil {
		logger.Error().Err(err).Msg("completion sweep error")
	}
	logger.Info().Dur("took", time.Since(start)).Msg("sweep complete")
}
