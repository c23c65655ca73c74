package jobs

import (
	"context"
	"time"

	"github.com/sulafhq/sulaf-backend/internal/logger"
	"github.com/sulafhq/sulaf-backend/internal/repos"
	"github.com/sulafhq/sulaf-backend/internal/types"
)

// DefaultStaleGrace is how long a pending/processing job may sit untouched
// before a restart sweep declares it dead.
const DefaultStaleGrace = time.Hour

// SweepStale fails every pending or processing job whose last update is older
// than the grace period. In-memory queues do not survive a restart, so such
// rows can never make progress again; marking them failed keeps clients from
// polling forever.
func SweepStale(
	ctx context.Context,
	log *logger.Logger,
	requests repos.BookRequestRepo,
	storyRepo repos.AIStoryRepo,
	grace time.Duration,
) {
	if grace <= 0 {
		grace = DefaultStaleGrace
	}
	cutoff := time.Now().Add(-grace)

	if n, err := requests.FailStale(ctx, cutoff, types.FailReasonStale); err != nil {
		log.Error("Stale book request sweep failed", "error", err)
	} else if n > 0 {
		log.Warn("Failed stale book requests from a previous run", "count", n)
	}

	if n, err := storyRepo.FailStale(ctx, cutoff, types.FailReasonStale); err != nil {
		log.Error("Stale story job sweep failed", "error", err)
	} else if n > 0 {
		log.Warn("Failed stale story jobs from a previous run", "count", n)
	}
}
