package cli

import (
	"context"
	"math/rand"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"papertrader/internal/book"
	"papertrader/internal/engine"
	"papertrader/internal/history"
	"papertrader/internal/ledger"
	"papertrader/internal/market"
	"papertrader/internal/scheduler"
	"papertrader/internal/server"
	"papertrader/internal/signal"
)

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the paper trading server",
		Long: `Starts the HTTP API, the simulated price feed and the periodic
sweep that applies take-profit, stop-loss and signal-based closes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port, _ := cmd.Flags().GetInt("port"); port > 0 {
				app.Config.Server.Port = port
			}
			if interval, _ := cmd.Flags().GetDuration("sweep-interval"); interval > 0 {
				app.Config.Engine.SweepInterval = interval
			}
			return runServe(app)
		},
	}

	cmd.Flags().Int("port", 0, "HTTP port (overrides config)")
	cmd.Flags().Duration("sweep-interval", 0, "sweep interval (overrides config)")

	return cmd
}

func runServe(app *App) error {
	cfg := app.Config
	log := app.Logger

	var feedOpts []market.Option
	if cfg.Market.Seed != 0 {
		feedOpts = append(feedOpts, market.WithRand(rand.New(rand.NewSource(cfg.Market.Seed))))
	}
	feed := market.NewFeed(feedOpts...)
	lg := ledger.New(cfg.Market.InitialBalances)
	bk := book.New()
	hist := history.New()

	var oracle signal.Oracle
	if cfg.OracleEnabled() {
		oracle = signal.NewOpenAIOracle(cfg.Oracle.APIKey, cfg.Oracle.Model)
		log.Info().Str("model", cfg.Oracle.Model).Msg("prediction oracle enabled")
	} else {
		log.Info().Msg("no oracle configured, using deterministic close signals")
	}

	gen := signal.NewGenerator(oracle, cfg.Oracle.Timeout, log)
	eval := engine.NewEvaluator(gen, cfg.Engine.MinSignalAge, cfg.Engine.MaxPositionAge)
	eng := engine.New(feed, lg, bk, hist, eval, cfg.Engine, log)
	predictor := signal.NewPredictor(feed, oracle, cfg.Oracle.Timeout, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(log)
	if err := sched.AddJob(ctx, scheduler.NewSweepJob(eng, log), cfg.Engine.SweepInterval); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(cfg.Server, eng, feed, predictor, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	cancel()
	if err := srv.Shutdown(); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	return nil
}
