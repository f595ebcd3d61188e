package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matchpick/predictor-league/internal/domain/fixture"
	"github.com/matchpick/predictor-league/internal/domain/round"
)

func newBetFixture(deadline time.Time, status string) (*BetService, *stubBetRepo) {
	rounds := newStubRoundRepo(round.Round{
		ID:                "r1",
		CompetitionID:     "comp-1",
		SeasonID:          "s1",
		Sequence:          1,
		Status:            status,
		EarliestKickoffAt: deadline,
	})
	fixtures := &stubFixtureRepo{fixtures: []fixture.Fixture{
		{ID: "f1", RoundID: "r1", CompetitionID: "comp-1", SeasonID: "s1", KickoffAt: deadline},
		{ID: "f2", RoundID: "r1", CompetitionID: "comp-1", SeasonID: "s1", KickoffAt: deadline.Add(time.Hour)},
		{ID: "f3", RoundID: "r2", CompetitionID: "comp-1", SeasonID: "s1", KickoffAt: deadline.Add(48 * time.Hour)},
	}}
	bets := &stubBetRepo{}
	service := NewBetService(rounds, fixtures, bets, &seqIDGen{})
	return service, bets
}

func TestBetService_SubmitPredictions_AcceptsBeforeDeadline(t *testing.T) {
	t.Parallel()

	deadline := time.Date(2026, 3, 7, 15, 0, 0, 0, time.UTC)
	service, bets := newBetFixture(deadline, round.StatusOpen)
	service.now = func() time.Time { return deadline.Add(-time.Second) }

	receipt, err := service.SubmitPredictions(context.Background(), "user-1", []PredictionInput{
		{FixtureID: "f1", Prediction: "home"},
		{FixtureID: "f2", Prediction: "draw"},
	})
	if err != nil {
		t.Fatalf("SubmitPredictions error: %v", err)
	}
	if receipt.RoundID != "r1" || receipt.Accepted != 2 {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}

	stored := bets.snapshot()
	if len(stored) != 2 {
		t.Fatalf("expected 2 stored bets, got %d", len(stored))
	}
	for _, item := range stored {
		if item.PointsAwarded != nil {
			t.Fatalf("new bet must not carry points: %+v", item)
		}
	}
}

func TestBetService_SubmitPredictions_RejectsAtDeadline(t *testing.T) {
	t.Parallel()

	deadline := time.Date(2026, 3, 7, 15, 0, 0, 0, time.UTC)
	service, _ := newBetFixture(deadline, round.StatusOpen)

	for _, at := range []time.Time{deadline, deadline.Add(time.Second)} {
		service.now = func() time.Time { return at }
		_, err := service.SubmitPredictions(context.Background(), "user-1", []PredictionInput{
			{FixtureID: "f1", Prediction: "home"},
		})
		if !errors.Is(err, ErrDeadlinePassed) {
			t.Fatalf("at %s expected ErrDeadlinePassed, got %v", at, err)
		}
	}
}

func TestBetService_SubmitPredictions_RejectsClosedRound(t *testing.T) {
	t.Parallel()

	deadline := time.Date(2026, 3, 7, 15, 0, 0, 0, time.UTC)
	for _, status := range []string{round.StatusScoring, round.StatusScored} {
		service, _ := newBetFixture(deadline, status)
		service.now = func() time.Time { return deadline.Add(-time.Hour) }

		_, err := service.SubmitPredictions(context.Background(), "user-1", []PredictionInput{
			{FixtureID: "f1", Prediction: "away"},
		})
		if !errors.Is(err, ErrRoundNotOpen) {
			t.Fatalf("status=%s expected ErrRoundNotOpen, got %v", status, err)
		}
	}
}

func TestBetService_SubmitPredictions_RejectsCrossRoundAndUnknownFixture(t *testing.T) {
	t.Parallel()

	deadline := time.Date(2026, 3, 7, 15, 0, 0, 0, time.UTC)
	service, _ := newBetFixture(deadline, round.StatusOpen)
	service.now = func() time.Time { return deadline.Add(-time.Hour) }

	_, err := service.SubmitPredictions(context.Background(), "user-1", []PredictionInput{
		{FixtureID: "f1", Prediction: "home"},
		{FixtureID: "f3", Prediction: "home"},
	})
	if !errors.Is(err, ErrCrossRoundSubmission) {
		t.Fatalf("expected ErrCrossRoundSubmission, got %v", err)
	}

	_, err = service.SubmitPredictions(context.Background(), "user-1", []PredictionInput{
		{FixtureID: "missing", Prediction: "home"},
	})
	if !errors.Is(err, ErrUnknownFixture) {
		t.Fatalf("expected ErrUnknownFixture, got %v", err)
	}
}

func TestBetService_SubmitPredictions_RejectsMalformedInput(t *testing.T) {
	t.Parallel()

	deadline := time.Date(2026, 3, 7, 15, 0, 0, 0, time.UTC)
	service, _ := newBetFixture(deadline, round.StatusOpen)
	service.now = func() time.Time { return deadline.Add(-time.Hour) }

	if _, err := service.SubmitPredictions(context.Background(), "", []PredictionInput{{FixtureID: "f1", Prediction: "home"}}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := service.SubmitPredictions(context.Background(), "user-1", nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty payload, got %v", err)
	}
	if _, err := service.SubmitPredictions(context.Background(), "user-1", []PredictionInput{{FixtureID: "f1", Prediction: "both"}}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad outcome, got %v", err)
	}
}

func TestBetService_SubmitPredictions_ResubmissionOverwrites(t *testing.T) {
	t.Parallel()

	deadline := time.Date(2026, 3, 7, 15, 0, 0, 0, time.UTC)
	service, bets := newBetFixture(deadline, round.StatusOpen)
	service.now = func() time.Time { return deadline.Add(-time.Hour) }

	if _, err := service.SubmitPredictions(context.Background(), "user-1", []PredictionInput{{FixtureID: "f1", Prediction: "home"}}); err != nil {
		t.Fatalf("first submission error: %v", err)
	}
	if _, err := service.SubmitPredictions(context.Background(), "user-1", []PredictionInput{{FixtureID: "f1", Prediction: "away"}}); err != nil {
		t.Fatalf("second submission error: %v", err)
	}

	stored := bets.snapshot()
	if len(stored) != 1 {
		t.Fatalf("expected overwrite, got %d rows", len(stored))
	}
	if stored[0].Prediction == nil || *stored[0].Prediction != fixture.OutcomeAway {
		t.Fatalf("expected overwritten prediction away, got %+v", stored[0])
	}
}
