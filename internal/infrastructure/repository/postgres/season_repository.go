package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/matchpick/predictor-league/internal/domain/season"
	qb "github.com/matchpick/predictor-league/internal/platform/querybuilder"
)

type SeasonRepository struct {
	db *sqlx.DB
}

func NewSeasonRepository(db *sqlx.DB) *SeasonRepository {
	return &SeasonRepository{db: db}
}

func seasonFromRow(row seasonTableModel) season.Season {
	return season.Season{
		ID:              row.PublicID,
		CompetitionID:   row.CompetitionID,
		Label:           row.Label,
		IsCurrent:       row.IsCurrent,
		BonusModeActive: row.BonusModeActive,
		StartsAt:        unixToTime(row.StartsAt),
		EndsAt:          unixToTime(row.EndsAt),
		CompletedAt:     nullUnixToTimePtr(row.CompletedAt),
		WinnerAt:        nullUnixToTimePtr(row.WinnerDeterminedAt),
		CupActivatedAt:  nullUnixToTimePtr(row.CupActivatedAt),
	}
}

func (r *SeasonRepository) GetByID(ctx context.Context, seasonID string) (season.Season, bool, error) {
	query, args, err := qb.Select("*").From("seasons").
		Where(
			qb.Eq("public_id", seasonID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return season.Season{}, false, fmt.Errorf("build get season query: %w", err)
	}

	var row seasonTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return season.Season{}, false, nil
		}
		return season.Season{}, false, fmt.Errorf("get season: %w", err)
	}
	return seasonFromRow(row), true, nil
}

func (r *SeasonRepository) GetCurrentByCompetition(ctx context.Context, competitionID string) (season.Season, bool, error) {
	query, args, err := qb.Select("*").From("seasons").
		Where(
			qb.Eq("competition_public_id", competitionID),
			qb.Eq("is_current", true),
			qb.IsNull("deleted_at"),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return season.Season{}, false, fmt.Errorf("build get current season query: %w", err)
	}

	var row seasonTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return season.Season{}, false, nil
		}
		return season.Season{}, false, fmt.Errorf("get current season: %w", err)
	}
	return seasonFromRow(row), true, nil
}

func (r *SeasonRepository) ListDueForCompletion(ctx context.Context, now time.Time) ([]season.Season, error) {
	query, args, err := qb.Select("*").From("seasons").
		Where(
			qb.IsNull("completed_at"),
			qb.Expr("ends_at > 0"),
			qb.Expr("ends_at < ?", timeToUnix(now)),
			qb.IsNull("deleted_at"),
		).
		OrderBy("public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list due seasons query: %w", err)
	}

	var rows []seasonTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list due seasons: %w", err)
	}

	out := make([]season.Season, 0, len(rows))
	for _, row := range rows {
		out = append(out, seasonFromRow(row))
	}
	return out, nil
}

func (r *SeasonRepository) ListAwaitingWinner(ctx context.Context) ([]season.Season, error) {
	query, args, err := qb.Select("*").From("seasons").
		Where(
			qb.Expr("completed_at IS NOT NULL"),
			qb.IsNull("winner_determined_at"),
			qb.IsNull("deleted_at"),
		).
		OrderBy("public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list awaiting winner query: %w", err)
	}

	var rows []seasonTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list seasons awaiting winner: %w", err)
	}

	out := make([]season.Season, 0, len(rows))
	for _, row := range rows {
		out = append(out, seasonFromRow(row))
	}
	return out, nil
}

// markOnce sets a nullable timestamp column only when it is still NULL. The
// affected-row count is the one-shot guarantee.
func (r *SeasonRepository) markOnce(ctx context.Context, seasonID, column string, at time.Time) (bool, error) {
	query, args, err := qb.Update("seasons").
		Set(column, timeToUnix(at)).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("public_id", seasonID),
			qb.IsNull(column),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build mark season %s query: %w", column, err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("mark season %s: %w", column, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark season %s rows affected: %w", column, err)
	}
	return affected > 0, nil
}

func (r *SeasonRepository) MarkCupActivated(ctx context.Context, seasonID string, at time.Time) (bool, error) {
	return r.markOnce(ctx, seasonID, "cup_activated_at", at)
}

func (r *SeasonRepository) MarkCompleted(ctx context.Context, seasonID string, at time.Time) (bool, error) {
	return r.markOnce(ctx, seasonID, "completed_at", at)
}

func (r *SeasonRepository) MarkWinnerDetermined(ctx context.Context, seasonID string, at time.Time) (bool, error) {
	return r.markOnce(ctx, seasonID, "winner_determined_at", at)
}
