package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"ms-library/internal/bookres"
	"ms-library/internal/config"
	"ms-library/internal/logger"
	"ms-library/internal/tableres"
)

const jobTimeout = 2 * time.Minute

// Scheduler drives the overdue-loan and missed-table sweeps on cron
// schedules. A slow sweep is skipped rather than stacked.
type Scheduler struct {
	cron   *cron.Cron
	logger *logger.Logger
}

func NewScheduler(books *bookres.Service, tables *tableres.Service, cfg config.SweepConfig, log *logger.Logger) (*Scheduler, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := c.AddFunc(cfg.BookSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		applied, err := books.SweepOverdue(ctx, time.Now())
		if err != nil {
			log.Error("SWEEP", fmt.Sprintf("book sweep failed: %v", err))
			return
		}
		log.Debug("SWEEP", fmt.Sprintf("book sweep done, %d penalized", applied))
	})
	if err != nil {
		return nil, fmt.Errorf("invalid book sweep spec %q: %w", cfg.BookSpec, err)
	}

	_, err = c.AddFunc(cfg.TableSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		applied, err := tables.SweepMissed(ctx, time.Now())
		if err != nil {
			log.Error("SWEEP", fmt.Sprintf("table sweep failed: %v", err))
			return
		}
		log.Debug("SWEEP", fmt.Sprintf("table sweep done, %d penalized", applied))
	})
	if err != nil {
		return nil, fmt.Errorf("invalid table sweep spec %q: %w", cfg.TableSpec, err)
	}

	return &Scheduler{cron: c, logger: log}, nil
}

func (s *Scheduler) Start() {
	s.logger.Info("SWEEP", "scheduler started")
	s.cron.Start()
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("SWEEP", "scheduler stopped")
}
