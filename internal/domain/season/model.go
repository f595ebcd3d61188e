package season

import "time"

// Season is one edition of a competition. The nullable timestamps are the
// idempotency guards for the season lifecycle: a non-null value means the
// transition already happened and must not happen again.
type Season struct {
	ID              string
	CompetitionID   string
	Label           string
	IsCurrent       bool
	BonusModeActive bool
	StartsAt        time.Time
	EndsAt          time.Time
	CompletedAt     *time.Time
	WinnerAt        *time.Time
	CupActivatedAt  *time.Time
}

func (s Season) IsCompleted() bool {
	return s.CompletedAt != nil
}

func (s Season) IsWinnerDetermined() bool {
	return s.WinnerAt != nil
}

func (s Season) IsCupActivated() bool {
	return s.CupActivatedAt != nil
}
