package postgres

import "time"

type winnerTableModel struct {
	ID           int64      `db:"id"`
	PublicID     string     `db:"public_id"`
	SeasonID     string     `db:"season_public_id"`
	UserID       string     `db:"user_id"`
	TotalPoints  int        `db:"total_points"`
	DeterminedAt int64      `db:"determined_at"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at"`
}

type winnerInsertModel struct {
	PublicID     string `db:"public_id"`
	SeasonID     string `db:"season_public_id"`
	UserID       string `db:"user_id"`
	TotalPoints  int    `db:"total_points"`
	DeterminedAt int64  `db:"determined_at"`
}
