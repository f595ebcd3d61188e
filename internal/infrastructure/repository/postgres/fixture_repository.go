package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/matchpick/predictor-league/internal/domain/fixture"
	qb "github.com/matchpick/predictor-league/internal/platform/querybuilder"
)

type FixtureRepository struct {
	db *sqlx.DB
}

func NewFixtureRepository(db *sqlx.DB) *FixtureRepository {
	return &FixtureRepository{db: db}
}

func fixtureFromRow(row fixtureTableModel) fixture.Fixture {
	f := fixture.Fixture{
		ID:            row.PublicID,
		RoundID:       row.RoundID,
		CompetitionID: row.CompetitionID,
		SeasonID:      row.SeasonID,
		HomeTeamID:    row.HomeTeamID,
		AwayTeamID:    row.AwayTeamID,
		KickoffAt:     unixToTime(row.KickoffAt),
		Status:        fixture.NormalizeStatus(row.Status),
	}
	if row.Result.Valid {
		if outcome, ok := fixture.ParseOutcome(row.Result.String); ok {
			f.Result = &outcome
		}
	}
	return f
}

func (r *FixtureRepository) ListByIDs(ctx context.Context, fixtureIDs []string) ([]fixture.Fixture, error) {
	if len(fixtureIDs) == 0 {
		return nil, nil
	}

	ids := make([]any, 0, len(fixtureIDs))
	for _, id := range fixtureIDs {
		ids = append(ids, id)
	}
	query, args, err := qb.Select("*").From("fixtures").
		Where(
			qb.In("public_id", ids),
			qb.IsNull("deleted_at"),
		).
		OrderBy("kickoff_at", "public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list fixtures by ids query: %w", err)
	}

	var rows []fixtureTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list fixtures by ids: %w", err)
	}
	return fixturesFromRows(rows), nil
}

func (r *FixtureRepository) ListByRound(ctx context.Context, roundID string) ([]fixture.Fixture, error) {
	query, args, err := qb.Select("*").From("fixtures").
		Where(
			qb.Eq("round_public_id", roundID),
			qb.IsNull("deleted_at"),
		).
		OrderBy("kickoff_at", "public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list fixtures by round query: %w", err)
	}

	var rows []fixtureTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list fixtures by round: %w", err)
	}
	return fixturesFromRows(rows), nil
}

func (r *FixtureRepository) ListBySeason(ctx context.Context, seasonID string) ([]fixture.Fixture, error) {
	query, args, err := qb.Select("*").From("fixtures").
		Where(
			qb.Eq("season_public_id", seasonID),
			qb.IsNull("deleted_at"),
		).
		OrderBy("kickoff_at", "public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list fixtures by season query: %w", err)
	}

	var rows []fixtureTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list fixtures by season: %w", err)
	}
	return fixturesFromRows(rows), nil
}

func fixturesFromRows(rows []fixtureTableModel) []fixture.Fixture {
	out := make([]fixture.Fixture, 0, len(rows))
	for _, row := range rows {
		out = append(out, fixtureFromRow(row))
	}
	return out
}
