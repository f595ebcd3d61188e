package bet

import (
	"context"
	"time"
)

type Repository interface {
	// UpsertPredictions writes submitted predictions with conflict target
	// (user id, fixture id), overwriting any prior prediction and refreshing
	// the submission time.
	UpsertPredictions(ctx context.Context, bets []Bet) error

	ListByRound(ctx context.Context, roundID string) ([]Bet, error)
	ListByCompetition(ctx context.Context, competitionID string) ([]Bet, error)
	ListByUserAndCompetition(ctx context.Context, userID, competitionID string) ([]Bet, error)

	// ApplyRoundPoints persists computed points for a round in one atomic
	// write. When clearFirst is set, all existing league and cup points for
	// the round are nulled before the updates land; the round row is locked
	// for the duration so concurrent recalculations cannot interleave.
	ApplyRoundPoints(ctx context.Context, roundID string, updates []PointsUpdate, clearFirst bool) error

	// ClearCupPoints nulls the cup column for the given rounds, ahead of a
	// cup-only recomputation.
	ClearCupPoints(ctx context.Context, roundIDs []string) error
	// ApplyCupPoints persists cup points only, leaving league points untouched.
	ApplyCupPoints(ctx context.Context, roundID string, updates []PointsUpdate) error

	// InsertRetroactiveAward inserts a predictionless award row. Returns
	// false without writing when the user already holds any row for the
	// round, which is what makes repeated backfills no-ops.
	InsertRetroactiveAward(ctx context.Context, award Bet) (bool, error)
}

// LedgerClock abstracts now() for deterministic tests.
type LedgerClock func() time.Time
