package postgres

import (
	"database/sql"
	"time"

	"github.com/matchpick/predictor-league/internal/domain/bet"
	"github.com/matchpick/predictor-league/internal/domain/fixture"
)

type betTableModel struct {
	ID               int64          `db:"id"`
	PublicID         string         `db:"public_id"`
	UserID           string         `db:"user_id"`
	CompetitionID    string         `db:"competition_public_id"`
	RoundID          string         `db:"round_public_id"`
	FixtureID        sql.NullString `db:"fixture_public_id"`
	Prediction       sql.NullString `db:"prediction"`
	PointsAwarded    sql.NullInt64  `db:"points_awarded"`
	CupPointsAwarded sql.NullInt64  `db:"cup_points_awarded"`
	IsRetroactive    bool           `db:"is_retroactive"`
	SubmittedAt      int64          `db:"submitted_at"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
	DeletedAt        *time.Time     `db:"deleted_at"`
}

type betInsertModel struct {
	PublicID         string         `db:"public_id"`
	UserID           string         `db:"user_id"`
	CompetitionID    string         `db:"competition_public_id"`
	RoundID          string         `db:"round_public_id"`
	FixtureID        sql.NullString `db:"fixture_public_id"`
	Prediction       sql.NullString `db:"prediction"`
	PointsAwarded    sql.NullInt64  `db:"points_awarded"`
	CupPointsAwarded sql.NullInt64  `db:"cup_points_awarded"`
	IsRetroactive    bool           `db:"is_retroactive"`
	SubmittedAt      int64          `db:"submitted_at"`
}

func betFromRow(row betTableModel) bet.Bet {
	b := bet.Bet{
		ID:               row.PublicID,
		UserID:           row.UserID,
		CompetitionID:    row.CompetitionID,
		RoundID:          row.RoundID,
		FixtureID:        nullStringToPtr(row.FixtureID),
		PointsAwarded:    nullIntToPtr(row.PointsAwarded),
		CupPointsAwarded: nullIntToPtr(row.CupPointsAwarded),
		IsRetroactive:    row.IsRetroactive,
		SubmittedAt:      unixToTime(row.SubmittedAt),
	}
	if row.Prediction.Valid {
		if outcome, ok := fixture.ParseOutcome(row.Prediction.String); ok {
			b.Prediction = &outcome
		}
	}
	return b
}

func betToInsertModel(b bet.Bet) betInsertModel {
	model := betInsertModel{
		PublicID:         b.ID,
		UserID:           b.UserID,
		CompetitionID:    b.CompetitionID,
		RoundID:          b.RoundID,
		FixtureID:        nullableString(b.FixtureID),
		PointsAwarded:    nullableInt(b.PointsAwarded),
		CupPointsAwarded: nullableInt(b.CupPointsAwarded),
		IsRetroactive:    b.IsRetroactive,
		SubmittedAt:      timeToUnix(b.SubmittedAt),
	}
	if b.Prediction != nil {
		value := string(*b.Prediction)
		model.Prediction = nullableString(&value)
	}
	return model
}
