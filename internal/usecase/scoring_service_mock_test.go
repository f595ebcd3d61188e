package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/matchpick/predictor-league/internal/domain/audit"
	"github.com/matchpick/predictor-league/internal/domain/bet"
	"github.com/matchpick/predictor-league/internal/domain/fixture"
	"github.com/matchpick/predictor-league/internal/domain/round"
	"github.com/matchpick/predictor-league/internal/domain/season"
)

type mockAuditSink struct {
	mock.Mock
}

func (m *mockAuditSink) Emit(ctx context.Context, event audit.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type mockInvalidator struct {
	mock.Mock
}

func (m *mockInvalidator) DeletePrefix(ctx context.Context, prefix string) {
	m.Called(ctx, prefix)
}

func TestScoringService_ScoreRound_EmitsAuditAndInvalidatesUsingMock(t *testing.T) {
	t.Parallel()

	kickoff := time.Date(2026, 4, 11, 14, 0, 0, 0, time.UTC)
	rounds := newStubRoundRepo(round.Round{
		ID:                "r1",
		CompetitionID:     "comp-1",
		SeasonID:          "s1",
		Sequence:          1,
		Status:            round.StatusOpen,
		EarliestKickoffAt: kickoff,
	})
	seasons := newStubSeasonRepo(season.Season{ID: "s1", CompetitionID: "comp-1", IsCurrent: true})
	home := fixture.OutcomeHome
	fixtures := &stubFixtureRepo{fixtures: []fixture.Fixture{
		{ID: "f1", RoundID: "r1", CompetitionID: "comp-1", SeasonID: "s1", Result: &home, Status: fixture.StatusFinished},
	}}
	bets := &stubBetRepo{bets: []bet.Bet{
		{ID: "b1", UserID: "u1", CompetitionID: "comp-1", RoundID: "r1", FixtureID: strPtr("f1"), Prediction: ptrOutcome(fixture.OutcomeHome)},
	}}

	sink := &mockAuditSink{}
	invalidator := &mockInvalidator{}

	invalidator.
		On("DeletePrefix", mock.Anything, "standings:comp-1").
		Once()
	sink.
		On("Emit", mock.Anything, mock.MatchedBy(func(event audit.Event) bool {
			return event.Action == audit.ActionRoundScored &&
				event.CompetitionID == "comp-1" &&
				event.RoundID == "r1"
		})).
		Return(nil).
		Once()

	service := NewScoringService(rounds, seasons, fixtures, bets, invalidator, sink, testLogger())

	result, err := service.ScoreRound(context.Background(), "r1")
	if err != nil {
		t.Fatalf("score round: %v", err)
	}
	if result.BetsScored != 1 || result.PointsAwarded != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	sink.AssertExpectations(t)
	invalidator.AssertExpectations(t)
}
