package fixture

import "context"

// Repository exposes fixture read operations.
type Repository interface {
	ListByIDs(ctx context.Context, fixtureIDs []string) ([]Fixture, error)
	ListByRound(ctx context.Context, roundID string) ([]Fixture, error)
	ListBySeason(ctx context.Context, seasonID string) ([]Fixture, error)
}
