package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Orchestrator manages the pipeline goroutines: the scan loop, the
// position monitor, and cold-storage archival.
type Orchestrator struct {
	scan            *ScanLoop
	monitor         *MonitorLoop
	archiver        *Archiver
	scanInterval    time.Duration
	monitorInterval time.Duration
	archiveCron     string
	logger          *slog.Logger
}

// NewOrchestrator creates a new Orchestrator that coordinates all
// pipeline sub-systems. A nil monitor or archiver disables that loop.
func NewOrchestrator(
	scan *ScanLoop,
	monitor *MonitorLoop,
	archiver *Archiver,
	scanInterval time.Duration,
	monitorInterval time.Duration,
	archiveCron string,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		scan:            scan,
		monitor:         monitor,
		archiver:        archiver,
		scanInterval:    scanInterval,
		monitorInterval: monitorInterval,
		archiveCron:     archiveCron,
		logger:          logger,
	}
}

// Run starts the sub-pipelines as concurrent goroutines using an
// errgroup. Each goroutine respects ctx cancellation. If any goroutine
// returns a non-context error, the errgroup cancels the shared context
// and Run returns that error.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("pipeline orchestrator starting",
		slog.Duration("scan_interval", o.scanInterval),
		slog.Duration("monitor_interval", o.monitorInterval),
		slog.String("archive_cron", o.archiveCron),
	)

	g, ctx := errgroup.WithContext(ctx)

	if o.scan != nil {
		g.Go(func() error {
			o.logger.Info("starting scan loop")
			err := o.scan.RunLoop(ctx, o.scanInterval)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("scan loop: %w", err)
		})
	}

	if o.monitor != nil {
		g.Go(func() error {
			o.logger.Info("starting position monitor loop")
			err := o.monitor.RunLoop(ctx, o.monitorInterval)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("monitor loop: %w", err)
		})
	}

	if o.archiver != nil && o.archiveCron != "" {
		g.Go(func() error {
			o.logger.Info("starting archiver cron")
			err := o.archiver.RunCron(ctx, o.archiveCron)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("archiver: %w", err)
		})
	}

	err := g.Wait()
	if err != nil {
		o.logger.Error("pipeline orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}

	o.logger.Info("pipeline orchestrator stopped cleanly")
	return nil
}
