// Package main is the entry point of the background worker. It runs the
// nightly ledger reconcile and statistics recompute and the daily platform
// snapshot on cron schedules.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ivnmtz09/yonna-akademia/config"
	"github.com/ivnmtz09/yonna-akademia/internal/app"
	"github.com/ivnmtz09/yonna-akademia/internal/infrastructure/scheduler"
	"github.com/ivnmtz09/yonna-akademia/internal/infrastructure/scheduler/jobs"
	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
	"github.com/ivnmtz09/yonna-akademia/pkg/timeutil"
)

func main() {
	runOnce := flag.String("run", "", "run one job by name and exit")
	flag.Parse()

	if err := run(*runOnce); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(runOnce string) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION & LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := app.NewLogger(cfg).With(logger.Component("worker"))
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─────────────────────────────────────────────────────────────────────────
	// 2. STORAGE & APPLICATION
	// ─────────────────────────────────────────────────────────────────────────
	infra, err := app.OpenInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close()

	// Jobs never notify, so no realtime publisher is wired.
	application, err := app.New(infra.Repos, app.OptionsFrom(cfg, nil, nil, log))
	if err != nil {
		return fmt.Errorf("failed to assemble application: %w", err)
	}
	defer func() { _ = application.Close() }()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	schedCfg := scheduler.DefaultSchedulerConfig()
	schedCfg.Logger = log
	schedCfg.Timezone = cfg.App.Location
	schedCfg.LockTTL = cfg.Scheduler.LockTTL
	if infra.Redis != nil {
		schedCfg.Locker = infra.Redis
	}
	sched := scheduler.NewScheduler(schedCfg)

	recomputeCfg := jobs.DefaultRecomputeStatisticsConfig()
	recomputeCfg.PageSize = cfg.Scheduler.PageSize
	recompute := jobs.NewRecomputeStatisticsJob(infra.Repos.Users, application.Ledger, application.Stats, recomputeCfg, log)
	snapshot := jobs.NewPlatformSnapshotJob(application.Stats, timeutil.SystemClock{}, log)

	if err := sched.Register(recompute, cfg.Scheduler.RecomputeSpec); err != nil {
		return fmt.Errorf("failed to register %s: %w", recompute.Name(), err)
	}
	if err := sched.Register(snapshot, cfg.Scheduler.SnapshotSpec); err != nil {
		return fmt.Errorf("failed to register %s: %w", snapshot.Name(), err)
	}

	if runOnce != "" {
		result, err := sched.RunNow(ctx, runOnce)
		if err != nil {
			return err
		}
		log.Info("job finished",
			logger.String("job", result.JobName),
			logger.Latency(result.Duration),
			logger.Any("skipped", result.Skipped),
		)
		return nil
	}

	if !cfg.Scheduler.Enabled {
		log.Warn("scheduler disabled, nothing to do")
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. RUN & GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := sched.Start(gctx); err != nil {
			return err
		}
		for _, j := range sched.ListJobs() {
			log.Info("job scheduled",
				logger.String("job", j.Name),
				logger.String("schedule", j.Schedule),
				logger.Time("next_run", j.NextRun),
			)
		}

		<-gctx.Done()
		log.Info("shutdown signal received, waiting for running jobs")
		if err := sched.Stop(); err != nil {
			return err
		}
		m := sched.GetMetrics().Snapshot()
		log.Info("scheduler summary",
			logger.Any("runs", m.TotalExecutions),
			logger.Any("failures", m.TotalFailures),
			logger.Duration("avg_duration", m.AverageDuration),
		)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("worker stopped")
	return nil
}
