package user

import (
	"context"
	"time"
)

type Repository interface {
	GetByID(ctx context.Context, userID string) (User, bool, error)
	ListByIDs(ctx context.Context, userIDs []string) ([]User, error)
	// ListByCompetition returns every user with at least one ledger row in
	// the competition.
	ListByCompetition(ctx context.Context, competitionID string) ([]User, error)
	// ListCreatedAfter returns users created strictly after the given
	// instant, ordered by creation time then id.
	ListCreatedAfter(ctx context.Context, createdAfter time.Time) ([]User, error)
}
