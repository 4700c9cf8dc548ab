package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"meeting-scribe/internal/domain/ports/repository"
	"meeting-scribe/internal/infra/metrics"
)

// Reaper periodically fails meetings that have sat in processing past the
// cutoff. Covers worker crashes that lose the in-flight delivery.
type Reaper struct {
	interval time.Duration
	cutoff   time.Duration
	meetings repository.MeetingRepository
	log      *zerolog.Logger
}

func NewReaper(interval, cutoff time.Duration, meetings repository.MeetingRepository, logger *zerolog.Logger) *Reaper {
	l := logger.With().Str("component", "Reaper").Logger()
	return &Reaper{interval: interval, cutoff: cutoff, meetings: meetings, log: &l}
}

func (r *Reaper) Run(ctx context.Context) error {
	r.log.Info().Msg("Starting stuck-job reaper")
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("Stopping stuck-job reaper")
			return ctx.Err()
		case <-ticker.C:
			n, err := r.meetings.MarkStuckFailed(ctx, r.cutoff)
			if err != nil {
				r.log.Error().Err(err).Msg("reaper sweep error")
				continue
			}
			if n > 0 {
				metrics.IncStuckReaped(n)
				r.log.Warn().Int("count", n).Msg("stuck meetings marked failed")
			}
		}
	}
}
