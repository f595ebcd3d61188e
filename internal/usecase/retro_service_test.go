package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/matchpick/predictor-league/internal/domain/bet"
	"github.com/matchpick/predictor-league/internal/domain/round"
	"github.com/matchpick/predictor-league/internal/domain/user"
)

// retroLedger seeds three scored rounds whose lowest participant totals are
// 2, 1 and 3, plus an unscored round 4 with no data.
func retroLedger() (*stubRoundRepo, *stubBetRepo) {
	kickoff := time.Date(2026, 1, 10, 15, 0, 0, 0, time.UTC)
	rounds := newStubRoundRepo(
		round.Round{ID: "r1", CompetitionID: "comp-1", SeasonID: "s1", Sequence: 1, Status: round.StatusScored, EarliestKickoffAt: kickoff},
		round.Round{ID: "r2", CompetitionID: "comp-1", SeasonID: "s1", Sequence: 2, Status: round.StatusScored, EarliestKickoffAt: kickoff.AddDate(0, 0, 7)},
		round.Round{ID: "r3", CompetitionID: "comp-1", SeasonID: "s1", Sequence: 3, Status: round.StatusScored, EarliestKickoffAt: kickoff.AddDate(0, 0, 14)},
		round.Round{ID: "r4", CompetitionID: "comp-1", SeasonID: "s1", Sequence: 4, Status: round.StatusOpen, EarliestKickoffAt: kickoff.AddDate(0, 0, 21)},
	)

	bets := &stubBetRepo{}
	seed := func(id, userID, roundID string, points int) {
		fixtureID := roundID + "-f"
		bets.bets = append(bets.bets, bet.Bet{
			ID: id, UserID: userID, CompetitionID: "comp-1", RoundID: roundID,
			FixtureID: &fixtureID, PointsAwarded: &points,
		})
	}
	seed("b1", "alice", "r1", 2)
	seed("b2", "bob", "r1", 4)
	seed("b3", "alice", "r2", 1)
	seed("b4", "bob", "r2", 2)
	seed("b5", "alice", "r3", 5)
	seed("b6", "bob", "r3", 3)
	return rounds, bets
}

func newRetroService(rounds *stubRoundRepo, bets *stubBetRepo, users *stubUserRepo) (*RetroService, *recordingSink) {
	sink := &recordingSink{}
	service := NewRetroService(rounds, bets, users, &recordingInvalidator{}, sink, testLogger(), &seqIDGen{})
	return service, sink
}

func TestRetroService_AllocateForUser_AwardsLowestScorePerRound(t *testing.T) {
	t.Parallel()

	rounds, bets := retroLedger()
	users := &stubUserRepo{users: []user.User{{ID: "carol", DisplayName: "Carol"}}}
	service, sink := newRetroService(rounds, bets, users)

	result, err := service.AllocateForUser(context.Background(), AllocateUserInput{
		UserID:        "carol",
		CompetitionID: "comp-1",
	})
	if err != nil {
		t.Fatalf("AllocateForUser error: %v", err)
	}
	if result.RoundsProcessed != 3 || result.RoundsAwarded != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.PointsAwarded != 6 {
		t.Fatalf("expected 2+1+3=6 points, got %d", result.PointsAwarded)
	}

	awardsByRound := make(map[string]bet.Bet)
	for _, item := range bets.snapshot() {
		if item.UserID == "carol" {
			awardsByRound[item.RoundID] = item
		}
	}
	if len(awardsByRound) != 3 {
		t.Fatalf("expected 3 award rows, got %d", len(awardsByRound))
	}
	if _, exists := awardsByRound["r4"]; exists {
		t.Fatalf("unscored round 4 must be skipped")
	}
	for roundID, want := range map[string]int{"r1": 2, "r2": 1, "r3": 3} {
		award := awardsByRound[roundID]
		if award.PointsAwarded == nil || *award.PointsAwarded != want {
			t.Fatalf("round %s award wrong: %+v", roundID, award)
		}
		if !award.IsRetroactive || award.FixtureID != nil || award.Prediction != nil {
			t.Fatalf("award must be a predictionless retro row: %+v", award)
		}
		if award.CupPointsAwarded != nil {
			t.Fatalf("retro award must not touch the cup ledger: %+v", award)
		}
	}
	if got := sink.actions(); len(got) != 1 || got[0] != "retro.allocated" {
		t.Fatalf("expected one retro.allocated event, got %v", got)
	}
}

func TestRetroService_AllocateForUser_SecondRunIsNoOp(t *testing.T) {
	t.Parallel()

	rounds, bets := retroLedger()
	users := &stubUserRepo{users: []user.User{{ID: "carol"}}}
	service, _ := newRetroService(rounds, bets, users)

	input := AllocateUserInput{UserID: "carol", CompetitionID: "comp-1"}
	if _, err := service.AllocateForUser(context.Background(), input); err != nil {
		t.Fatalf("first run error: %v", err)
	}
	before := len(bets.snapshot())

	second, err := service.AllocateForUser(context.Background(), input)
	if err != nil {
		t.Fatalf("second run error: %v", err)
	}
	if second.PointsAwarded != 0 || second.RoundsAwarded != 0 {
		t.Fatalf("second run must award nothing: %+v", second)
	}
	if got := len(bets.snapshot()); got != before {
		t.Fatalf("second run must insert no rows: before=%d after=%d", before, got)
	}
}

func TestRetroService_AllocateForUser_SkipsRoundsWithoutPeers(t *testing.T) {
	t.Parallel()

	kickoff := time.Date(2026, 1, 10, 15, 0, 0, 0, time.UTC)
	rounds := newStubRoundRepo(round.Round{
		ID: "r1", CompetitionID: "comp-1", SeasonID: "s1", Sequence: 1,
		Status: round.StatusScored, EarliestKickoffAt: kickoff,
	})
	bets := &stubBetRepo{}
	users := &stubUserRepo{users: []user.User{{ID: "carol"}}}
	service, _ := newRetroService(rounds, bets, users)

	result, err := service.AllocateForUser(context.Background(), AllocateUserInput{
		UserID: "carol", CompetitionID: "comp-1",
	})
	if err != nil {
		t.Fatalf("AllocateForUser error: %v", err)
	}
	if result.RoundsAwarded != 0 || result.PointsAwarded != 0 {
		t.Fatalf("empty round must be skipped, not zero-filled: %+v", result)
	}
	if len(result.Rounds) != 1 || result.Rounds[0].Status != retroStatusNoBaseline {
		t.Fatalf("expected a no_baseline row, got %+v", result.Rounds)
	}
	if len(bets.snapshot()) != 0 {
		t.Fatalf("no rows must be written")
	}
}

func TestRetroService_AllocateForUser_FromSequenceAndDryRun(t *testing.T) {
	t.Parallel()

	rounds, bets := retroLedger()
	users := &stubUserRepo{users: []user.User{{ID: "carol"}}}
	service, sink := newRetroService(rounds, bets, users)

	from := 2
	result, err := service.AllocateForUser(context.Background(), AllocateUserInput{
		UserID: "carol", CompetitionID: "comp-1", FromSequence: &from, DryRun: true,
	})
	if err != nil {
		t.Fatalf("AllocateForUser error: %v", err)
	}
	if result.RoundsProcessed != 2 || result.PointsAwarded != 1+3 {
		t.Fatalf("expected rounds 2 and 3 only: %+v", result)
	}
	for _, item := range bets.snapshot() {
		if item.UserID == "carol" {
			t.Fatalf("dry run must not write: %+v", item)
		}
	}
	if got := sink.actions(); len(got) != 0 {
		t.Fatalf("dry run must not emit audit events, got %v", got)
	}
}

func TestRetroService_AllocateBulk_SkipsUsersOutsideCompetition(t *testing.T) {
	t.Parallel()

	rounds, bets := retroLedger()
	joined := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	// dana joined comp-1 late and holds a round-1 row; eve is just as new but
	// only plays comp-2 and must not be backfilled here.
	users := &stubUserRepo{
		users: []user.User{
			{ID: "alice", CreatedAt: joined.AddDate(0, -3, 0)},
			{ID: "bob", CreatedAt: joined.AddDate(0, -3, 0)},
			{ID: "dana", CreatedAt: joined.Add(time.Hour)},
			{ID: "eve", CreatedAt: joined.Add(2 * time.Hour)},
		},
		memberships: map[string][]string{
			"comp-1": {"alice", "bob", "dana"},
			"comp-2": {"eve"},
		},
	}
	danaPoints := 7
	fixtureID := "r1-f"
	bets.bets = append(bets.bets, bet.Bet{
		ID: "b-dana", UserID: "dana", CompetitionID: "comp-1", RoundID: "r1",
		FixtureID: &fixtureID, PointsAwarded: &danaPoints,
	})

	service, _ := newRetroService(rounds, bets, users)

	result, err := service.AllocateBulk(context.Background(), AllocateBulkInput{
		CompetitionID: "comp-1",
		CreatedAfter:  joined,
	})
	if err != nil {
		t.Fatalf("AllocateBulk error: %v", err)
	}
	if result.UserCount != 1 || len(result.Users) != 1 || result.Users[0].UserID != "dana" {
		t.Fatalf("only dana joined comp-1 after the cutoff: %+v", result)
	}
	if result.PointsAwarded != 1+3 {
		t.Fatalf("dana's gaps are rounds 2 and 3, got %+v", result)
	}
	for _, item := range bets.snapshot() {
		if item.UserID == "eve" {
			t.Fatalf("eve never joined comp-1, got row %+v", item)
		}
	}
}

func TestRetroService_AllocateBulk_FillsOnlyGaps(t *testing.T) {
	t.Parallel()

	rounds, bets := retroLedger()
	joined := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	users := &stubUserRepo{users: []user.User{
		{ID: "alice", CreatedAt: joined.AddDate(0, -3, 0)},
		{ID: "bob", CreatedAt: joined.AddDate(0, -3, 0)},
	}}
	newcomers := 0
	for i := 0; i < 6; i++ {
		userID := fmt.Sprintf("late-%02d", i)
		users.users = append(users.users, user.User{ID: userID, CreatedAt: joined.Add(time.Hour)})
		newcomers++
	}
	// One newcomer already holds a round-1 row; only their rounds 2-3 are gaps.
	partial := 9
	fixtureID := "r1-f"
	bets.bets = append(bets.bets, bet.Bet{
		ID: "b-partial", UserID: "late-00", CompetitionID: "comp-1", RoundID: "r1",
		FixtureID: &fixtureID, PointsAwarded: &partial,
	})

	service, _ := newRetroService(rounds, bets, users)

	result, err := service.AllocateBulk(context.Background(), AllocateBulkInput{
		CompetitionID: "comp-1",
		CreatedAfter:  joined,
		MaxWorkers:    8,
	})
	if err != nil {
		t.Fatalf("AllocateBulk error: %v", err)
	}
	if result.UserCount != newcomers || result.FailedCount != 0 {
		t.Fatalf("unexpected batch shape: %+v", result)
	}
	if result.WorkerCount != maxRetroWorkers {
		t.Fatalf("worker count must be capped at %d, got %d", maxRetroWorkers, result.WorkerCount)
	}

	// 5 users with all three gaps (2+1+3) plus one with rounds 2-3 only (1+3).
	wantPoints := 5*6 + 4
	if result.PointsAwarded != wantPoints {
		t.Fatalf("expected %d points over the gaps, got %d", wantPoints, result.PointsAwarded)
	}

	rows := 0
	for _, item := range bets.snapshot() {
		if item.IsRetroactive {
			rows++
		}
	}
	if rows != 5*3+2 {
		t.Fatalf("expected exactly the missing rows, got %d", rows)
	}
}
