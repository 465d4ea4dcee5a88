package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Sweeper evicts expired entries from an in-process cache.
type Sweeper interface {
	Cleanup() int
}

// Orchestrator manages the background goroutines: the scan loop, the
// cold-storage archiver and, with in-memory deduplication, its sweeper.
type Orchestrator struct {
	scanner       *Scanner
	archiver      *Archiver
	sweeper       Sweeper
	pollInterval  time.Duration
	sweepInterval time.Duration
	archiveCron   string
	logger        *slog.Logger
}

// NewOrchestrator creates an Orchestrator. A nil archiver or sweeper
// disables that loop.
func NewOrchestrator(
	scanner *Scanner,
	archiver *Archiver,
	sweeper Sweeper,
	pollInterval time.Duration,
	archiveCron string,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		scanner:       scanner,
		archiver:      archiver,
		sweeper:       sweeper,
		pollInterval:  pollInterval,
		sweepInterval: 10 * time.Minute,
		archiveCron:   archiveCron,
		logger:        logger.With(slog.String("component", "orchestrator")),
	}
}

// Run starts the loops under an errgroup. Each goroutine respects ctx
// cancellation. If any goroutine returns a non-context error, the errgroup
// cancels the shared context and Run returns that error.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("pipeline orchestrator starting",
		slog.Duration("poll_interval", o.pollInterval),
		slog.Bool("archiver", o.archiver != nil),
		slog.String("archive_cron", o.archiveCron),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := o.scanner.RunLoop(ctx, o.pollInterval)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("scan loop: %w", err)
	})

	if o.archiver != nil {
		g.Go(func() error {
			err := o.archiver.RunCron(ctx, o.archiveCron)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("archiver: %w", err)
		})
	}

	if o.sweeper != nil {
		g.Go(func() error {
			o.sweep(ctx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		o.logger.Error("pipeline orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}

	o.logger.Info("pipeline orchestrator stopped cleanly")
	return nil
}

func (o *Orchestrator) sweep(ctx context.Context) {
	ticker := time.NewTicker(o.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := o.sweeper.Cleanup(); n > 0 {
				o.logger.Debug("swept expired fingerprints", slog.Int("count", n))
			}
		}
	}
}
