package postgres

import (
	"database/sql"
	"time"
)

type fixtureTableModel struct {
	ID            int64          `db:"id"`
	PublicID      string         `db:"public_id"`
	RoundID       string         `db:"round_public_id"`
	CompetitionID string         `db:"competition_public_id"`
	SeasonID      string         `db:"season_public_id"`
	HomeTeamID    string         `db:"home_team_public_id"`
	AwayTeamID    string         `db:"away_team_public_id"`
	KickoffAt     int64          `db:"kickoff_at"`
	Result        sql.NullString `db:"result"`
	Status        string         `db:"status"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
	DeletedAt     *time.Time     `db:"deleted_at"`
}
