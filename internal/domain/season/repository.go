package season

import (
	"context"
	"time"
)

type Repository interface {
	GetByID(ctx context.Context, seasonID string) (Season, bool, error)
	GetCurrentByCompetition(ctx context.Context, competitionID string) (Season, bool, error)

	// ListDueForCompletion returns active seasons whose end date has passed.
	ListDueForCompletion(ctx context.Context, now time.Time) ([]Season, error)
	// ListAwaitingWinner returns completed seasons without a winner yet.
	ListAwaitingWinner(ctx context.Context) ([]Season, error)

	// MarkCupActivated sets the cup activation timestamp only when it is still
	// unset. Returns false when another run already activated it.
	MarkCupActivated(ctx context.Context, seasonID string, at time.Time) (bool, error)
	// MarkCompleted sets completed_at only when it is still unset.
	MarkCompleted(ctx context.Context, seasonID string, at time.Time) (bool, error)
	// MarkWinnerDetermined sets the winner timestamp only when it is still unset.
	MarkWinnerDetermined(ctx context.Context, seasonID string, at time.Time) (bool, error)
}
