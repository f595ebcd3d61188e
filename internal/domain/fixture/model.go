package fixture

import (
	"strings"
	"time"
)

const (
	StatusScheduled = "SCHEDULED"
	StatusLive      = "LIVE"
	StatusFinished  = "FINISHED"
	StatusCancelled = "CANCELLED"
	StatusPostponed = "POSTPONED"
)

// Outcome is the three-way match result: home win, draw or away win.
// Fixture results and user predictions share the type.
type Outcome string

const (
	OutcomeHome Outcome = "home"
	OutcomeDraw Outcome = "draw"
	OutcomeAway Outcome = "away"
)

func ParseOutcome(value string) (Outcome, bool) {
	switch Outcome(strings.ToLower(strings.TrimSpace(value))) {
	case OutcomeHome:
		return OutcomeHome, true
	case OutcomeDraw:
		return OutcomeDraw, true
	case OutcomeAway:
		return OutcomeAway, true
	default:
		return "", false
	}
}

// Fixture represents one scheduled match. The sync subsystem owns these rows;
// the scoring core only reads them.
type Fixture struct {
	ID            string
	RoundID       string
	CompetitionID string
	SeasonID      string
	HomeTeamID    string
	AwayTeamID    string
	KickoffAt     time.Time
	Result        *Outcome
	Status        string
}

// IsPlayed reports whether the fixture has a usable final result.
func (f Fixture) IsPlayed() bool {
	return f.Result != nil && IsFinishedStatus(f.Status)
}

// CountsAsRemaining reports whether the fixture still lies ahead of a team,
// which is what the cup activation check sums per team.
func (f Fixture) CountsAsRemaining() bool {
	return !f.IsPlayed() && !IsCancelledLikeStatus(f.Status)
}

func NormalizeStatus(value string) string {
	status := strings.ToUpper(strings.TrimSpace(value))
	if status == "" {
		return StatusScheduled
	}
	return status
}

func IsLiveStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusLive, "IN_PLAY", "HT", "1H", "2H", "ET":
		return true
	default:
		return false
	}
}

func IsFinishedStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusFinished, "FT", "AET", "PEN":
		return true
	default:
		return false
	}
}

func IsCancelledLikeStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusCancelled, StatusPostponed, "ABANDONED":
		return true
	default:
		return false
	}
}
