package postgres

import (
	"database/sql"
	"time"
)

type seasonTableModel struct {
	ID                 int64         `db:"id"`
	PublicID           string        `db:"public_id"`
	CompetitionID      string        `db:"competition_public_id"`
	Label              string        `db:"label"`
	IsCurrent          bool          `db:"is_current"`
	BonusModeActive    bool          `db:"bonus_mode_active"`
	StartsAt           int64         `db:"starts_at"`
	EndsAt             int64         `db:"ends_at"`
	CompletedAt        sql.NullInt64 `db:"completed_at"`
	WinnerDeterminedAt sql.NullInt64 `db:"winner_determined_at"`
	CupActivatedAt     sql.NullInt64 `db:"cup_activated_at"`
	CreatedAt          time.Time     `db:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at"`
	DeletedAt          *time.Time    `db:"deleted_at"`
}
