package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/matchpick/predictor-league/internal/domain/round"
	qb "github.com/matchpick/predictor-league/internal/platform/querybuilder"
)

type RoundRepository struct {
	db *sqlx.DB
}

func NewRoundRepository(db *sqlx.DB) *RoundRepository {
	return &RoundRepository{db: db}
}

func roundFromRow(row roundTableModel) round.Round {
	return round.Round{
		ID:                row.PublicID,
		CompetitionID:     row.CompetitionID,
		SeasonID:          row.SeasonID,
		Sequence:          row.Sequence,
		Status:            round.NormalizeStatus(row.Status),
		EarliestKickoffAt: unixToTime(row.EarliestKickoffAt),
		IsBonusRound:      row.IsBonusRound,
		CupActivatedAt:    nullUnixToTimePtr(row.CupActivatedAt),
	}
}

func (r *RoundRepository) GetByID(ctx context.Context, roundID string) (round.Round, bool, error) {
	query, args, err := qb.Select("*").From("betting_rounds").
		Where(
			qb.Eq("public_id", roundID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return round.Round{}, false, fmt.Errorf("build get round query: %w", err)
	}

	var row roundTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return round.Round{}, false, nil
		}
		return round.Round{}, false, fmt.Errorf("get round: %w", err)
	}
	return roundFromRow(row), true, nil
}

func (r *RoundRepository) ListByCompetition(ctx context.Context, competitionID string) ([]round.Round, error) {
	query, args, err := qb.Select("*").From("betting_rounds").
		Where(
			qb.Eq("competition_public_id", competitionID),
			qb.IsNull("deleted_at"),
		).
		OrderBy("sequence").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list rounds query: %w", err)
	}

	var rows []roundTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	return roundsFromRows(rows), nil
}

func (r *RoundRepository) ListScoredByCompetition(ctx context.Context, competitionID string) ([]round.Round, error) {
	query, args, err := qb.Select("*").From("betting_rounds").
		Where(
			qb.Eq("competition_public_id", competitionID),
			qb.Eq("status", round.StatusScored),
			qb.IsNull("deleted_at"),
		).
		OrderBy("sequence").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list scored rounds query: %w", err)
	}

	var rows []roundTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list scored rounds: %w", err)
	}
	return roundsFromRows(rows), nil
}

// UpdateStatus is a compare-and-swap on the status column. A zero affected-row
// count means some other worker already moved the round on.
func (r *RoundRepository) UpdateStatus(ctx context.Context, roundID, from, to string) (bool, error) {
	query, args, err := qb.Update("betting_rounds").
		Set("status", round.NormalizeStatus(to)).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("public_id", roundID),
			qb.Eq("status", round.NormalizeStatus(from)),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build update round status query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update round status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update round status rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *RoundRepository) MarkCupActivated(ctx context.Context, roundID string, at time.Time) (bool, error) {
	query, args, err := qb.Update("betting_rounds").
		Set("cup_activated_at", timeToUnix(at)).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("public_id", roundID),
			qb.IsNull("cup_activated_at"),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build mark round cup activated query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("mark round cup activated: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark round cup activated rows affected: %w", err)
	}
	return affected > 0, nil
}

func roundsFromRows(rows []roundTableModel) []round.Round {
	out := make([]round.Round, 0, len(rows))
	for _, row := range rows {
		out = append(out, roundFromRow(row))
	}
	return out
}
