package winner

import "context"

type Repository interface {
	ListBySeason(ctx context.Context, seasonID string) ([]SeasonWinner, error)
	ExistsForSeason(ctx context.Context, seasonID string) (bool, error)
	// InsertAll writes every winner row of a season in one transaction so a
	// tie can never be recorded half-way.
	InsertAll(ctx context.Context, winners []SeasonWinner) error
}
