package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cagefight/config"
	"cagefight/database"
	"cagefight/discord"
	"cagefight/fight"
	"cagefight/logger"
	"cagefight/scheduler"
	"cagefight/web"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

const shutdownTimeout = 15 * time.Second

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	fx.Provide(database.NewRepository),
	fx.Provide(provideEngine),
	discord.Module,
	fx.Provide(web.NewMatchBroadcaster),
	fx.Provide(provideScheduler),
	fx.Provide(web.NewServer),
)

func main() {
	fx.New(
		Module,
		fx.Invoke(run),
	).Run()
}

func provideEngine(logger zerolog.Logger) (*fight.DecisionEngine, error) {
	catalog, err := fight.LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("failed to load action catalog: %w", err)
	}
	logger.Info().Int("actions", catalog.Len()).Msg("action catalog loaded")
	return fight.NewDecisionEngine(catalog), nil
}

func provideScheduler(cfg *config.Config, repo *database.Repository, engine *fight.DecisionEngine, broadcaster *web.MatchBroadcaster, notifier *discord.Notifier, logger zerolog.Logger) (*scheduler.Scheduler, error) {
	return scheduler.NewScheduler(cfg, repo, engine, broadcaster, notifier, logger)
}

func run(
	lc fx.Lifecycle,
	cfg *config.Config,
	db *sqlx.DB,
	sched *scheduler.Scheduler,
	server *web.Server,
	log zerolog.Logger,
) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	schedCtx, cancelSched := context.WithCancel(context.Background())
	schedDone := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			level := logger.ApplyLevel(cfg.LogLevel)

			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			log.Info().
				Str("level", level.String()).
				Str("local_time", time.Now().In(loc).Format("Monday, January 2, 2006 at 3:04:05 PM MST")).
				Msg("starting cagefight")

			go func() {
				defer close(schedDone)
				if err := sched.Run(schedCtx); err != nil {
					log.Error().Err(err).Msg("scheduler stopped")
				}
			}()

			go func() {
				log.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			cancelSched()
			<-schedDone
			// live bouts end as no contests and are saved before the database closes
			sched.Stop()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			if err := db.Close(); err != nil {
				log.Warn().Err(err).Msg("error closing database connection")
			}
			log.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}
