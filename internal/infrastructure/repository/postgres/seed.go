package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/matchpick/predictor-league/internal/infrastructure/repository/memory"
)

// BootstrapSeed loads the local seed data into an empty database. A database
// that already holds a season is left untouched.
func BootstrapSeed(ctx context.Context, db *sqlx.DB) error {
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(1) FROM seasons WHERE deleted_at IS NULL`); err != nil {
		return fmt.Errorf("count seasons for bootstrap seed: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, s := range memory.SeedSeasons() {
		sqlQuery, args, err := sqlx.Named(`
INSERT INTO seasons (public_id, competition_public_id, label, is_current, bonus_mode_active, starts_at, ends_at)
VALUES (:public_id, :competition_public_id, :label, :is_current, :bonus_mode_active, :starts_at, :ends_at)
ON CONFLICT (public_id) WHERE deleted_at IS NULL DO NOTHING`, map[string]any{
			"public_id":             s.ID,
			"competition_public_id": s.CompetitionID,
			"label":                 s.Label,
			"is_current":            s.IsCurrent,
			"bonus_mode_active":     s.BonusModeActive,
			"starts_at":             timeToUnix(s.StartsAt),
			"ends_at":               timeToUnix(s.EndsAt),
		})
		if err != nil {
			return fmt.Errorf("bind seed season %s query: %w", s.ID, err)
		}
		sqlQuery = tx.Rebind(sqlQuery)
		if _, err := tx.ExecContext(ctx, sqlQuery, args...); err != nil {
			return fmt.Errorf("seed season %s: %w", s.ID, err)
		}
	}

	for _, r := range memory.SeedRounds() {
		sqlQuery, args, err := sqlx.Named(`
INSERT INTO betting_rounds (public_id, competition_public_id, season_public_id, sequence, status, earliest_kickoff_at, is_bonus_round)
VALUES (:public_id, :competition_public_id, :season_public_id, :sequence, :status, :earliest_kickoff_at, :is_bonus_round)
ON CONFLICT (public_id) WHERE deleted_at IS NULL DO NOTHING`, map[string]any{
			"public_id":             r.ID,
			"competition_public_id": r.CompetitionID,
			"season_public_id":      r.SeasonID,
			"sequence":              r.Sequence,
			"status":                string(r.Status),
			"earliest_kickoff_at":   timeToUnix(r.EarliestKickoffAt),
			"is_bonus_round":        r.IsBonusRound,
		})
		if err != nil {
			return fmt.Errorf("bind seed round %s query: %w", r.ID, err)
		}
		sqlQuery = tx.Rebind(sqlQuery)
		if _, err := tx.ExecContext(ctx, sqlQuery, args...); err != nil {
			return fmt.Errorf("seed round %s: %w", r.ID, err)
		}
	}

	for _, f := range memory.SeedFixtures() {
		var result *string
		if f.Result != nil {
			v := string(*f.Result)
			result = &v
		}
		sqlQuery, args, err := sqlx.Named(`
INSERT INTO fixtures (public_id, round_public_id, competition_public_id, season_public_id, home_team_public_id, away_team_public_id, kickoff_at, result, status)
VALUES (:public_id, :round_public_id, :competition_public_id, :season_public_id, :home_team_public_id, :away_team_public_id, :kickoff_at, :result, :status)
ON CONFLICT (public_id) WHERE deleted_at IS NULL DO NOTHING`, map[string]any{
			"public_id":             f.ID,
			"round_public_id":       f.RoundID,
			"competition_public_id": f.CompetitionID,
			"season_public_id":      f.SeasonID,
			"home_team_public_id":   f.HomeTeamID,
			"away_team_public_id":   f.AwayTeamID,
			"kickoff_at":            timeToUnix(f.KickoffAt),
			"result":                nullableString(result),
			"status":                f.Status,
		})
		if err != nil {
			return fmt.Errorf("bind seed fixture %s query: %w", f.ID, err)
		}
		sqlQuery = tx.Rebind(sqlQuery)
		if _, err := tx.ExecContext(ctx, sqlQuery, args...); err != nil {
			return fmt.Errorf("seed fixture %s: %w", f.ID, err)
		}
	}

	for _, u := range memory.SeedUsers() {
		sqlQuery, args, err := sqlx.Named(`
INSERT INTO users (user_id, display_name, created_at)
VALUES (:user_id, :display_name, :created_at)
ON CONFLICT (user_id) WHERE deleted_at IS NULL DO NOTHING`, map[string]any{
			"user_id":      u.ID,
			"display_name": u.DisplayName,
			"created_at":   timeToUnix(u.CreatedAt),
		})
		if err != nil {
			return fmt.Errorf("bind seed user %s query: %w", u.ID, err)
		}
		sqlQuery = tx.Rebind(sqlQuery)
		if _, err := tx.ExecContext(ctx, sqlQuery, args...); err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}

	return nil
}
