package round

import (
	"strings"
	"time"
)

const (
	StatusOpen    = "open"
	StatusScoring = "scoring"
	StatusScored  = "scored"
)

// Round is one batch of fixtures that open and close for betting together.
// EarliestKickoffAt doubles as the submission deadline.
type Round struct {
	ID                string
	CompetitionID     string
	SeasonID          string
	Sequence          int
	Status            string
	EarliestKickoffAt time.Time
	IsBonusRound      bool
	CupActivatedAt    *time.Time
}

func NormalizeStatus(value string) string {
	status := strings.ToLower(strings.TrimSpace(value))
	if status == "" {
		return StatusOpen
	}
	return status
}

// CanTransition enforces the monotonic open -> scoring -> scored lifecycle.
func CanTransition(from, to string) bool {
	switch NormalizeStatus(from) {
	case StatusOpen:
		return NormalizeStatus(to) == StatusScoring
	case StatusScoring:
		return NormalizeStatus(to) == StatusScored
	default:
		return false
	}
}

func (r Round) IsScored() bool {
	return NormalizeStatus(r.Status) == StatusScored
}

// IsCupEligible reports whether the round counts toward the cup ledger.
// A round inherits eligibility from its own stamp or from the season-level
// activation when its fixtures kick off after that instant.
func (r Round) IsCupEligible(seasonCupActivatedAt *time.Time) bool {
	if r.CupActivatedAt != nil {
		return true
	}
	if seasonCupActivatedAt == nil {
		return false
	}
	return r.EarliestKickoffAt.After(*seasonCupActivatedAt)
}
