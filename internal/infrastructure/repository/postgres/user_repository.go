package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/matchpick/predictor-league/internal/domain/user"
	qb "github.com/matchpick/predictor-league/internal/platform/querybuilder"
)

// listUsersByCompetitionQuery needs a correlated subquery against the ledger,
// which the builder cannot express.
const listUsersByCompetitionQuery = `
SELECT u.*
FROM users u
WHERE u.deleted_at IS NULL
  AND EXISTS (
    SELECT 1 FROM user_bets b
    WHERE b.user_id = u.user_id
      AND b.competition_public_id = $1
      AND b.deleted_at IS NULL
  )
ORDER BY u.user_id`

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func userFromRow(row userTableModel) user.User {
	return user.User{
		ID:          row.UserID,
		DisplayName: row.DisplayName,
		CreatedAt:   unixToTime(row.CreatedAt),
	}
}

func (r *UserRepository) GetByID(ctx context.Context, userID string) (user.User, bool, error) {
	query, args, err := qb.Select("*").From("users").
		Where(
			qb.Eq("user_id", userID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return user.User{}, false, fmt.Errorf("build get user query: %w", err)
	}

	var row userTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return user.User{}, false, nil
		}
		return user.User{}, false, fmt.Errorf("get user: %w", err)
	}
	return userFromRow(row), true, nil
}

func (r *UserRepository) ListByIDs(ctx context.Context, userIDs []string) ([]user.User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	ids := make([]any, 0, len(userIDs))
	for _, id := range userIDs {
		ids = append(ids, id)
	}
	query, args, err := qb.Select("*").From("users").
		Where(
			qb.In("user_id", ids),
			qb.IsNull("deleted_at"),
		).
		OrderBy("user_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list users by ids query: %w", err)
	}

	var rows []userTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list users by ids: %w", err)
	}
	return usersFromRows(rows), nil
}

func (r *UserRepository) ListByCompetition(ctx context.Context, competitionID string) ([]user.User, error) {
	var rows []userTableModel
	if err := r.db.SelectContext(ctx, &rows, listUsersByCompetitionQuery, competitionID); err != nil {
		return nil, fmt.Errorf("list users by competition: %w", err)
	}
	return usersFromRows(rows), nil
}

func (r *UserRepository) ListCreatedAfter(ctx context.Context, createdAfter time.Time) ([]user.User, error) {
	query, args, err := qb.Select("*").From("users").
		Where(
			qb.Expr("created_at > ?", timeToUnix(createdAfter)),
			qb.IsNull("deleted_at"),
		).
		OrderBy("created_at", "user_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list users created after query: %w", err)
	}

	var rows []userTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list users created after: %w", err)
	}
	return usersFromRows(rows), nil
}

func usersFromRows(rows []userTableModel) []user.User {
	out := make([]user.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, userFromRow(row))
	}
	return out
}
