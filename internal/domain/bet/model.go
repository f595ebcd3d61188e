package bet

import (
	"time"

	"github.com/matchpick/predictor-league/internal/domain/fixture"
)

// Bet is one row of the points ledger. Two shapes share the table:
//
//   - a real prediction: FixtureID and Prediction set, at most one live row
//     per (user, fixture), resubmission before the deadline overwrites it;
//   - a retroactive award: no fixture, no prediction, IsRetroactive set, at
//     most one per (user, round). Its presence is the idempotency guard for
//     the backfill.
//
// League and cup points live in separate columns so a correction to one
// ledger can never corrupt the other.
type Bet struct {
	ID               string
	UserID           string
	CompetitionID    string
	RoundID          string
	FixtureID        *string
	Prediction       *fixture.Outcome
	PointsAwarded    *int
	CupPointsAwarded *int
	IsRetroactive    bool
	SubmittedAt      time.Time
}

func (b Bet) HasLeaguePoints() bool {
	return b.PointsAwarded != nil
}

// PointsUpdate carries a freshly computed score for one ledger row.
type PointsUpdate struct {
	BetID     string
	Points    int
	CupPoints *int
}
