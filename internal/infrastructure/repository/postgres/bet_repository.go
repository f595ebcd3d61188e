package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/matchpick/predictor-league/internal/domain/bet"
	qb "github.com/matchpick/predictor-league/internal/platform/querybuilder"
)

const lockRoundQuery = `SELECT id FROM betting_rounds WHERE public_id = $1 AND deleted_at IS NULL FOR UPDATE`

type BetRepository struct {
	db *sqlx.DB
}

func NewBetRepository(db *sqlx.DB) *BetRepository {
	return &BetRepository{db: db}
}

func (r *BetRepository) UpsertPredictions(ctx context.Context, bets []bet.Bet) error {
	if len(bets) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert predictions: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, b := range bets {
		query, args, err := qb.InsertModel("user_bets", betToInsertModel(b), `ON CONFLICT (user_id, fixture_public_id) WHERE deleted_at IS NULL
DO UPDATE SET
    prediction = EXCLUDED.prediction,
    round_public_id = EXCLUDED.round_public_id,
    submitted_at = EXCLUDED.submitted_at,
    updated_at = NOW()`)
		if err != nil {
			return fmt.Errorf("build upsert prediction query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert prediction: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert predictions tx: %w", err)
	}
	return nil
}

func (r *BetRepository) ListByRound(ctx context.Context, roundID string) ([]bet.Bet, error) {
	query, args, err := qb.Select("*").From("user_bets").
		Where(
			qb.Eq("round_public_id", roundID),
			qb.IsNull("deleted_at"),
		).
		OrderBy("submitted_at", "public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list bets by round query: %w", err)
	}

	var rows []betTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list bets by round: %w", err)
	}
	return betsFromRows(rows), nil
}

func (r *BetRepository) ListByCompetition(ctx context.Context, competitionID string) ([]bet.Bet, error) {
	query, args, err := qb.Select("*").From("user_bets").
		Where(
			qb.Eq("competition_public_id", competitionID),
			qb.IsNull("deleted_at"),
		).
		OrderBy("submitted_at", "public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list bets by competition query: %w", err)
	}

	var rows []betTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list bets by competition: %w", err)
	}
	return betsFromRows(rows), nil
}

func (r *BetRepository) ListByUserAndCompetition(ctx context.Context, userID, competitionID string) ([]bet.Bet, error) {
	query, args, err := qb.Select("*").From("user_bets").
		Where(
			qb.Eq("user_id", userID),
			qb.Eq("competition_public_id", competitionID),
			qb.IsNull("deleted_at"),
		).
		OrderBy("submitted_at", "public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list bets by user query: %w", err)
	}

	var rows []betTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list bets by user: %w", err)
	}
	return betsFromRows(rows), nil
}

// ApplyRoundPoints holds a row lock on the round while the ledger is written,
// so a recalculation can never interleave with a concurrent scoring run.
func (r *BetRepository) ApplyRoundPoints(ctx context.Context, roundID string, updates []bet.PointsUpdate, clearFirst bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx apply round points: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var lockedID int64
	if err := tx.GetContext(ctx, &lockedID, lockRoundQuery, roundID); err != nil {
		return fmt.Errorf("lock round for scoring: %w", err)
	}

	if clearFirst {
		clearQuery, clearArgs, err := qb.Update("user_bets").
			SetExpr("points_awarded", "NULL").
			SetExpr("cup_points_awarded", "NULL").
			SetExpr("updated_at", "NOW()").
			Where(
				qb.Eq("round_public_id", roundID),
				qb.Eq("is_retroactive", false),
				qb.IsNull("deleted_at"),
			).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build clear round points query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, clearQuery, clearArgs...); err != nil {
			return fmt.Errorf("clear round points: %w", err)
		}
	}

	for _, update := range updates {
		builder := qb.Update("user_bets").
			Set("points_awarded", update.Points).
			SetExpr("updated_at", "NOW()")
		if update.CupPoints != nil {
			builder = builder.Set("cup_points_awarded", *update.CupPoints)
		}
		query, args, err := builder.
			Where(
				qb.Eq("public_id", update.BetID),
				qb.IsNull("deleted_at"),
			).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build apply round points query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("apply round points: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit apply round points tx: %w", err)
	}
	return nil
}

func (r *BetRepository) ClearCupPoints(ctx context.Context, roundIDs []string) error {
	if len(roundIDs) == 0 {
		return nil
	}

	ids := make([]any, 0, len(roundIDs))
	for _, id := range roundIDs {
		ids = append(ids, id)
	}
	query, args, err := qb.Update("user_bets").
		SetExpr("cup_points_awarded", "NULL").
		SetExpr("updated_at", "NOW()").
		Where(
			qb.In("round_public_id", ids),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build clear cup points query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear cup points: %w", err)
	}
	return nil
}

func (r *BetRepository) ApplyCupPoints(ctx context.Context, roundID string, updates []bet.PointsUpdate) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx apply cup points: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var lockedID int64
	if err := tx.GetContext(ctx, &lockedID, lockRoundQuery, roundID); err != nil {
		return fmt.Errorf("lock round for cup recompute: %w", err)
	}

	for _, update := range updates {
		query, args, err := qb.Update("user_bets").
			Set("cup_points_awarded", update.Points).
			SetExpr("updated_at", "NOW()").
			Where(
				qb.Eq("public_id", update.BetID),
				qb.IsNull("deleted_at"),
			).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build apply cup points query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("apply cup points: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit apply cup points tx: %w", err)
	}
	return nil
}

// InsertRetroactiveAward locks the round row first so two backfill workers
// cannot both pass the existence check for the same user.
func (r *BetRepository) InsertRetroactiveAward(ctx context.Context, award bet.Bet) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx insert retro award: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var lockedID int64
	if err := tx.GetContext(ctx, &lockedID, lockRoundQuery, award.RoundID); err != nil {
		return false, fmt.Errorf("lock round for retro award: %w", err)
	}

	existsQuery, existsArgs, err := qb.Select("COUNT(1)").From("user_bets").
		Where(
			qb.Eq("user_id", award.UserID),
			qb.Eq("round_public_id", award.RoundID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build retro award existence query: %w", err)
	}
	var existing int
	if err := tx.GetContext(ctx, &existing, existsQuery, existsArgs...); err != nil {
		return false, fmt.Errorf("check retro award existence: %w", err)
	}
	if existing > 0 {
		return false, nil
	}

	query, args, err := qb.InsertModel("user_bets", betToInsertModel(award), "")
	if err != nil {
		return false, fmt.Errorf("build insert retro award query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return false, fmt.Errorf("insert retro award: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit insert retro award tx: %w", err)
	}
	return true, nil
}

func betsFromRows(rows []betTableModel) []bet.Bet {
	out := make([]bet.Bet, 0, len(rows))
	for _, row := range rows {
		out = append(out, betFromRow(row))
	}
	return out
}
