package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/matchpick/predictor-league/internal/domain/bet"
	"github.com/matchpick/predictor-league/internal/domain/round"
	"github.com/matchpick/predictor-league/internal/domain/season"
	"github.com/matchpick/predictor-league/internal/domain/standings"
	"github.com/matchpick/predictor-league/internal/domain/user"
)

type stubStandingsReader struct {
	tables map[string][]standings.LeagueEntry
	err    error
}

func (s *stubStandingsReader) LeagueForSeason(_ context.Context, _ string, seasonID string) ([]standings.LeagueEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.tables[seasonID], nil
}

func TestSeasonService_CompleteDueSeasons(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	done := now.AddDate(0, -1, 0)
	seasons := newStubSeasonRepo(
		season.Season{ID: "s-due", CompetitionID: "comp-1", EndsAt: now.AddDate(0, 0, -2)},
		season.Season{ID: "s-running", CompetitionID: "comp-2", EndsAt: now.AddDate(0, 1, 0)},
		season.Season{ID: "s-done", CompetitionID: "comp-3", EndsAt: now.AddDate(0, 0, -9), CompletedAt: &done},
	)
	sink := &recordingSink{}
	service := NewSeasonService(seasons, &stubWinnerRepo{}, &stubStandingsReader{}, sink, testLogger(), &seqIDGen{})
	service.now = func() time.Time { return now }

	result, err := service.CompleteDueSeasons(context.Background())
	if err != nil {
		t.Fatalf("CompleteDueSeasons error: %v", err)
	}
	if result.SeasonsProcessed != 1 || result.FailedCount != 0 {
		t.Fatalf("only the due season runs: %+v", result)
	}
	if result.Seasons[0].SeasonID != "s-due" || result.Seasons[0].Status != seasonStatusCompleted {
		t.Fatalf("unexpected unit result: %+v", result.Seasons[0])
	}

	stored, _, _ := seasons.GetByID(context.Background(), "s-due")
	if stored.CompletedAt == nil || !stored.CompletedAt.Equal(now) {
		t.Fatalf("completion timestamp not set: %+v", stored)
	}

	second, err := service.CompleteDueSeasons(context.Background())
	if err != nil {
		t.Fatalf("second CompleteDueSeasons error: %v", err)
	}
	if second.SeasonsProcessed != 0 {
		t.Fatalf("completed season must not be picked up again: %+v", second)
	}
}

func TestSeasonService_ForceComplete_AlreadyDone(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	seasons := newStubSeasonRepo(season.Season{ID: "s1", CompetitionID: "comp-1", EndsAt: now.AddDate(0, 2, 0), CompletedAt: &now})
	service := NewSeasonService(seasons, &stubWinnerRepo{}, &stubStandingsReader{}, &recordingSink{}, testLogger(), &seqIDGen{})

	_, err := service.ForceComplete(context.Background(), "s1", "ops@example.com")
	if !errors.Is(err, ErrSeasonAlreadyCompleted) {
		t.Fatalf("expected ErrSeasonAlreadyCompleted, got %v", err)
	}
}

func TestSeasonService_DetermineWinners_SingleTop(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	completed := now.AddDate(0, 0, -1)
	seasons := newStubSeasonRepo(season.Season{ID: "s1", CompetitionID: "comp-1", CompletedAt: &completed})
	winners := &stubWinnerRepo{}
	reader := &stubStandingsReader{tables: map[string][]standings.LeagueEntry{
		"s1": {
			{Rank: 1, UserID: "alice", TotalPoints: 42},
			{Rank: 2, UserID: "bob", TotalPoints: 40},
		},
	}}
	service := NewSeasonService(seasons, winners, reader, &recordingSink{}, testLogger(), &seqIDGen{})
	service.now = func() time.Time { return now }

	result, err := service.DetermineWinners(context.Background())
	if err != nil {
		t.Fatalf("DetermineWinners error: %v", err)
	}
	if result.SeasonsProcessed != 1 || result.Seasons[0].Winners != 1 || result.Seasons[0].TopPoints != 42 {
		t.Fatalf("unexpected result: %+v", result)
	}

	rows, _ := winners.ListBySeason(context.Background(), "s1")
	if len(rows) != 1 || rows[0].UserID != "alice" || rows[0].TotalPoints != 42 {
		t.Fatalf("unexpected winner rows: %+v", rows)
	}

	second, err := service.DetermineWinners(context.Background())
	if err != nil {
		t.Fatalf("second DetermineWinners error: %v", err)
	}
	if second.SeasonsProcessed != 0 {
		t.Fatalf("determined season must not be picked up again: %+v", second)
	}
	rows, _ = winners.ListBySeason(context.Background(), "s1")
	if len(rows) != 1 {
		t.Fatalf("rerun must not add winner rows, got %d", len(rows))
	}
}

func TestSeasonService_DetermineWinners_TieProducesMultipleRows(t *testing.T) {
	t.Parallel()

	completed := time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC)
	seasons := newStubSeasonRepo(season.Season{ID: "s1", CompetitionID: "comp-1", CompletedAt: &completed})
	winners := &stubWinnerRepo{}
	reader := &stubStandingsReader{tables: map[string][]standings.LeagueEntry{
		"s1": {
			{Rank: 1, UserID: "alice", TotalPoints: 42},
			{Rank: 1, UserID: "bob", TotalPoints: 42},
			{Rank: 2, UserID: "carol", TotalPoints: 30},
		},
	}}
	service := NewSeasonService(seasons, winners, reader, &recordingSink{}, testLogger(), &seqIDGen{})

	result, err := service.DetermineWinners(context.Background())
	if err != nil {
		t.Fatalf("DetermineWinners error: %v", err)
	}
	if result.Seasons[0].Winners != 2 {
		t.Fatalf("tie at the top must produce 2 winners: %+v", result.Seasons[0])
	}

	rows, _ := winners.ListBySeason(context.Background(), "s1")
	if len(rows) != 2 {
		t.Fatalf("expected 2 winner rows, got %d", len(rows))
	}
	seen := map[string]bool{}
	for _, row := range rows {
		seen[row.UserID] = true
	}
	if !seen["alice"] || !seen["bob"] {
		t.Fatalf("unexpected tied winners: %+v", rows)
	}
}

func TestSeasonService_DetermineWinners_TotalsScopedToSeasonRounds(t *testing.T) {
	t.Parallel()

	// Two seasons share one competition ledger. Alice dominated the first
	// season; only the second season's rounds may decide its winner.
	completed := time.Date(2027, 5, 31, 0, 0, 0, 0, time.UTC)
	winnerAt := completed.AddDate(0, 0, 1)
	seasons := newStubSeasonRepo(
		season.Season{ID: "s1", CompetitionID: "comp-1", CompletedAt: &completed, WinnerAt: &winnerAt},
		season.Season{ID: "s2", CompetitionID: "comp-1", CompletedAt: &completed},
	)
	rounds := newStubRoundRepo(
		round.Round{ID: "r1", CompetitionID: "comp-1", SeasonID: "s1", Sequence: 1, Status: round.StatusScored},
		round.Round{ID: "r2", CompetitionID: "comp-1", SeasonID: "s2", Sequence: 2, Status: round.StatusScored},
	)
	bets := &stubBetRepo{}
	seed := func(id, userID, roundID string, points int) {
		fixtureID := roundID + "-" + id
		awarded := points
		bets.bets = append(bets.bets, bet.Bet{
			ID: id, UserID: userID, CompetitionID: "comp-1", RoundID: roundID,
			FixtureID: &fixtureID, PointsAwarded: &awarded,
		})
	}
	seed("a1", "alice", "r1", 10)
	seed("b1", "bob", "r1", 1)
	seed("a2", "alice", "r2", 1)
	seed("b2", "bob", "r2", 2)
	users := &stubUserRepo{users: []user.User{{ID: "alice"}, {ID: "bob"}}}

	winners := &stubWinnerRepo{}
	standingsService := NewStandingsService(bets, users, rounds)
	service := NewSeasonService(seasons, winners, standingsService, &recordingSink{}, testLogger(), &seqIDGen{})

	result, err := service.DetermineWinners(context.Background())
	if err != nil {
		t.Fatalf("DetermineWinners error: %v", err)
	}
	if result.SeasonsProcessed != 1 || result.Seasons[0].SeasonID != "s2" {
		t.Fatalf("only the awaiting season runs: %+v", result)
	}
	if result.Seasons[0].Winners != 1 || result.Seasons[0].TopPoints != 2 {
		t.Fatalf("second season totals must exclude first season points: %+v", result.Seasons[0])
	}

	rows, _ := winners.ListBySeason(context.Background(), "s2")
	if len(rows) != 1 || rows[0].UserID != "bob" || rows[0].TotalPoints != 2 {
		t.Fatalf("bob wins the second season on its own rounds: %+v", rows)
	}
}

func TestSeasonService_DetermineWinners_PartialBatchFailure(t *testing.T) {
	t.Parallel()

	completed := time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC)
	seasons := newStubSeasonRepo(
		season.Season{ID: "s-bad", CompetitionID: "comp-bad", CompletedAt: &completed},
		season.Season{ID: "s-good", CompetitionID: "comp-good", CompletedAt: &completed},
	)
	winners := &stubWinnerRepo{failSeasons: map[string]error{
		"s-bad": fmt.Errorf("connection reset"),
	}}
	reader := &stubStandingsReader{tables: map[string][]standings.LeagueEntry{
		"s-bad":  {{Rank: 1, UserID: "mallory", TotalPoints: 10}},
		"s-good": {{Rank: 1, UserID: "alice", TotalPoints: 20}},
	}}
	service := NewSeasonService(seasons, winners, reader, &recordingSink{}, testLogger(), &seqIDGen{})

	result, err := service.DetermineWinners(context.Background())
	if err != nil {
		t.Fatalf("batch must not fail on a unit error: %v", err)
	}
	if result.FailedCount != 1 || result.SucceededCount != 1 || len(result.Errors) != 1 {
		t.Fatalf("unexpected batch result: %+v", result)
	}

	good, _, _ := seasons.GetByID(context.Background(), "s-good")
	if good.WinnerAt == nil {
		t.Fatalf("healthy season must complete despite sibling failure")
	}
	bad, _, _ := seasons.GetByID(context.Background(), "s-bad")
	if bad.WinnerAt != nil {
		t.Fatalf("failed season must stay retryable")
	}
}
