package postgres

import (
	"database/sql"
	"time"
)

type roundTableModel struct {
	ID                int64         `db:"id"`
	PublicID          string        `db:"public_id"`
	CompetitionID     string        `db:"competition_public_id"`
	SeasonID          string        `db:"season_public_id"`
	Sequence          int           `db:"sequence"`
	Status            string        `db:"status"`
	EarliestKickoffAt int64         `db:"earliest_kickoff_at"`
	IsBonusRound      bool          `db:"is_bonus_round"`
	CupActivatedAt    sql.NullInt64 `db:"cup_activated_at"`
	CreatedAt         time.Time     `db:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at"`
	DeletedAt         *time.Time    `db:"deleted_at"`
}
