package round

import (
	"context"
	"time"
)

type Repository interface {
	GetByID(ctx context.Context, roundID string) (Round, bool, error)
	ListByCompetition(ctx context.Context, competitionID string) ([]Round, error)
	// ListScoredByCompetition returns scored rounds ordered by sequence.
	ListScoredByCompetition(ctx context.Context, competitionID string) ([]Round, error)

	// UpdateStatus applies a monotonic status transition. Returns false when
	// the round is no longer in the expected `from` status.
	UpdateStatus(ctx context.Context, roundID, from, to string) (bool, error)
	// MarkCupActivated stamps cup eligibility on a round once.
	MarkCupActivated(ctx context.Context, roundID string, at time.Time) (bool, error)
}
