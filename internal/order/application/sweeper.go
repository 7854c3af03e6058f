package application

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper reconciles the residual gap of the two-phase checkout write: if
// compensation itself fails, a header with zero lines survives. The sweep
// deletes such orphans once they are older than the grace period, so an
// in-flight checkout whose lines have not landed yet is never touched.
type Sweeper struct {
	log      *slog.Logger
	repo     Repository
	interval time.Duration
	grace    time.Duration
}

func NewSweeper(log *slog.Logger, repo Repository) *Sweeper {
	return &Sweeper{
		log:      log,
		repo:     repo,
		interval: time.Minute,
		grace:    5 * time.Minute,
	}
}

func (s *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("orphan sweeper stopping")
			return nil
		case <-t.C:
			n, err := s.repo.DeleteOrphans(ctx, s.grace)
			if err != nil {
				s.log.Error("orphan sweep failed", "err", err)
				continue
			}
			if n > 0 {
				s.log.Warn("orphan order headers reaped", "count", n)
			}
		}
	}
}
