package winner

import "time"

// SeasonWinner records one user finishing top of a season. Ties produce one
// row per tied user, all sharing the same DeterminedAt instant.
type SeasonWinner struct {
	ID           string
	SeasonID     string
	UserID       string
	TotalPoints  int
	DeterminedAt time.Time
}
