package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/matchpick/predictor-league/internal/domain/winner"
	qb "github.com/matchpick/predictor-league/internal/platform/querybuilder"
)

type WinnerRepository struct {
	db *sqlx.DB
}

func NewWinnerRepository(db *sqlx.DB) *WinnerRepository {
	return &WinnerRepository{db: db}
}

func (r *WinnerRepository) ListBySeason(ctx context.Context, seasonID string) ([]winner.SeasonWinner, error) {
	query, args, err := qb.Select("*").From("season_winners").
		Where(
			qb.Eq("season_public_id", seasonID),
			qb.IsNull("deleted_at"),
		).
		OrderBy("user_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list season winners query: %w", err)
	}

	var rows []winnerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list season winners: %w", err)
	}

	out := make([]winner.SeasonWinner, 0, len(rows))
	for _, row := range rows {
		out = append(out, winner.SeasonWinner{
			ID:           row.PublicID,
			SeasonID:     row.SeasonID,
			UserID:       row.UserID,
			TotalPoints:  row.TotalPoints,
			DeterminedAt: unixToTime(row.DeterminedAt),
		})
	}
	return out, nil
}

func (r *WinnerRepository) ExistsForSeason(ctx context.Context, seasonID string) (bool, error) {
	query, args, err := qb.Select("COUNT(1)").From("season_winners").
		Where(
			qb.Eq("season_public_id", seasonID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build season winners existence query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("check season winners existence: %w", err)
	}
	return count > 0, nil
}

func (r *WinnerRepository) InsertAll(ctx context.Context, winners []winner.SeasonWinner) error {
	if len(winners) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx insert season winners: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, w := range winners {
		model := winnerInsertModel{
			PublicID:     w.ID,
			SeasonID:     w.SeasonID,
			UserID:       w.UserID,
			TotalPoints:  w.TotalPoints,
			DeterminedAt: timeToUnix(w.DeterminedAt),
		}
		query, args, err := qb.InsertModel("season_winners", model, `ON CONFLICT (season_public_id, user_id) WHERE deleted_at IS NULL
DO NOTHING`)
		if err != nil {
			return fmt.Errorf("build insert season winner query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert season winner: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert season winners tx: %w", err)
	}
	return nil
}
