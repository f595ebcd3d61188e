package postgres

import "time"

type userTableModel struct {
	ID          int64      `db:"id"`
	UserID      string     `db:"user_id"`
	DisplayName string     `db:"display_name"`
	CreatedAt   int64      `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
	DeletedAt   *time.Time `db:"deleted_at"`
}
