package standings

// LeagueEntry is one user's position in the season-long league table.
// Entries are derived from the ledger, never stored.
type LeagueEntry struct {
	Rank            int
	UserID          string
	DisplayName     string
	TotalPoints     int
	PredictionCount int
	RetroCount      int
}

// CupEntry is one user's position in the cup table. Only rounds played after
// cup activation contribute.
type CupEntry struct {
	Rank        int
	UserID      string
	DisplayName string
	CupPoints   int
	RoundsInCup int
}
