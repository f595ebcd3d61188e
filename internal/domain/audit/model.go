package audit

import "time"

const (
	ActionRoundScored      = "round.scored"
	ActionRoundRecalced    = "round.recalculated"
	ActionCupActivated     = "cup.activated"
	ActionCupRecomputed    = "cup.recomputed"
	ActionRetroAllocated   = "retro.allocated"
	ActionSeasonCompleted  = "season.completed"
	ActionWinnerDetermined = "season.winner_determined"
)

// Event is an append-only record of a scoring mutation, emitted after the
// write commits. Delivery is best effort; the ledger is the source of truth.
type Event struct {
	Action        string            `json:"action"`
	CompetitionID string            `json:"competitionId,omitempty"`
	SeasonID      string            `json:"seasonId,omitempty"`
	RoundID       string            `json:"roundId,omitempty"`
	UserID        string            `json:"userId,omitempty"`
	Detail        map[string]string `json:"detail,omitempty"`
	OccurredAt    time.Time         `json:"occurredAt"`
}
