package engine

import (
	"context"
	"time"

	"github.com/sergiomvj/faceblog/internal/jobstore"
	"github.com/sergiomvj/faceblog/internal/metrics"
	"github.com/sergiomvj/faceblog/internal/model"
)

// TimeoutError is the failure reason recorded when an external platform
// never calls back within the await window.
const TimeoutError = "timed out awaiting external confirmation"

// SweepStalled fails every running job whose awaited callback is older than
// the configured timeout. Returns the number of jobs failed.
func (e *Engine) SweepStalled(ctx context.Context) (int, error) {
	jobs, err := e.store.List(ctx, jobstore.Filter{Status: model.StatusRunning})
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-e.opts.AwaitTimeout)
	swept := 0
	for _, job := range jobs {
		if job.Awaiting == nil || !job.Awaiting.Since.Before(cutoff) {
			continue
		}
		e.failJob(job.ID, TimeoutError, metrics.ReasonTimeout)
		swept++
	}

	if swept > 0 {
		e.logger.Warn().Int("count", swept).Msg("swept stalled jobs")
	}
	return swept, nil
}

// RunSweeper runs SweepStalled on the given interval until ctx is done.
func (e *Engine) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := e.SweepStalled(ctx); err != nil {
				e.logger.Error().Err(err).Msg("timeout sweep failed")
			}
		}
	}
}
