package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/matchpick/predictor-league/internal/domain/bet"
	"github.com/matchpick/predictor-league/internal/domain/fixture"
	"github.com/matchpick/predictor-league/internal/domain/round"
	"github.com/matchpick/predictor-league/internal/platform/id"
)

// BetService admits predictions into the ledger. All gate checks run before
// any write; a rejected submission leaves no trace.
type BetService struct {
	roundRepo   round.Repository
	fixtureRepo fixture.Repository
	betRepo     bet.Repository
	idGen       id.Generator
	now         bet.LedgerClock
}

func NewBetService(
	roundRepo round.Repository,
	fixtureRepo fixture.Repository,
	betRepo bet.Repository,
	idGen id.Generator,
) *BetService {
	return &BetService{
		roundRepo:   roundRepo,
		fixtureRepo: fixtureRepo,
		betRepo:     betRepo,
		idGen:       idGen,
		now:         time.Now,
	}
}

type PredictionInput struct {
	FixtureID  string `json:"fixture_id" validate:"required"`
	Prediction string `json:"prediction" validate:"required,oneof=home draw away"`
}

type SubmitReceipt struct {
	RoundID     string    `json:"round_id"`
	Accepted    int       `json:"accepted"`
	SubmittedAt time.Time `json:"submitted_at"`
}

func (s *BetService) SubmitPredictions(ctx context.Context, userID string, inputs []PredictionInput) (SubmitReceipt, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BetService.SubmitPredictions")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return SubmitReceipt{}, fmt.Errorf("%w: user id is required", ErrUnauthenticated)
	}
	if len(inputs) == 0 {
		return SubmitReceipt{}, fmt.Errorf("%w: at least one prediction is required", ErrInvalidInput)
	}

	fixtureIDs := make([]string, 0, len(inputs))
	predictionByFixture := make(map[string]fixture.Outcome, len(inputs))
	for _, input := range inputs {
		fixtureID := strings.TrimSpace(input.FixtureID)
		if fixtureID == "" {
			return SubmitReceipt{}, fmt.Errorf("%w: fixture id is required", ErrInvalidInput)
		}
		outcome, ok := fixture.ParseOutcome(input.Prediction)
		if !ok {
			return SubmitReceipt{}, fmt.Errorf("%w: prediction must be home, draw or away", ErrInvalidInput)
		}
		if _, duplicate := predictionByFixture[fixtureID]; duplicate {
			return SubmitReceipt{}, fmt.Errorf("%w: duplicate fixture=%s in payload", ErrInvalidInput, fixtureID)
		}
		fixtureIDs = append(fixtureIDs, fixtureID)
		predictionByFixture[fixtureID] = outcome
	}

	fixtures, err := s.fixtureRepo.ListByIDs(ctx, fixtureIDs)
	if err != nil {
		return SubmitReceipt{}, fmt.Errorf("list fixtures for submission: %w", err)
	}
	fixtureByID := make(map[string]fixture.Fixture, len(fixtures))
	for _, item := range fixtures {
		fixtureByID[item.ID] = item
	}

	roundID := ""
	for _, fixtureID := range fixtureIDs {
		item, exists := fixtureByID[fixtureID]
		if !exists {
			return SubmitReceipt{}, fmt.Errorf("%w: fixture=%s", ErrUnknownFixture, fixtureID)
		}
		if item.RoundID == "" {
			return SubmitReceipt{}, fmt.Errorf("fixture=%s is not linked to any round", fixtureID)
		}
		if roundID == "" {
			roundID = item.RoundID
			continue
		}
		if item.RoundID != roundID {
			return SubmitReceipt{}, fmt.Errorf("%w: fixtures belong to rounds %s and %s", ErrCrossRoundSubmission, roundID, item.RoundID)
		}
	}

	currentRound, exists, err := s.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		return SubmitReceipt{}, fmt.Errorf("get round for submission: %w", err)
	}
	if !exists {
		return SubmitReceipt{}, fmt.Errorf("fixtures reference missing round=%s", roundID)
	}
	if round.NormalizeStatus(currentRound.Status) != round.StatusOpen {
		return SubmitReceipt{}, fmt.Errorf("%w: round=%s status=%s", ErrRoundNotOpen, roundID, currentRound.Status)
	}
	if currentRound.EarliestKickoffAt.IsZero() {
		return SubmitReceipt{}, fmt.Errorf("round=%s has no submission deadline configured", roundID)
	}

	now := s.now().UTC()
	if !now.Before(currentRound.EarliestKickoffAt) {
		return SubmitReceipt{}, fmt.Errorf("%w: round=%s deadline=%s", ErrDeadlinePassed, roundID, currentRound.EarliestKickoffAt.Format(time.RFC3339))
	}

	bets := make([]bet.Bet, 0, len(fixtureIDs))
	for _, fixtureID := range fixtureIDs {
		betID, err := s.idGen.NewID()
		if err != nil {
			return SubmitReceipt{}, fmt.Errorf("generate bet id: %w", err)
		}
		item := fixtureByID[fixtureID]
		prediction := predictionByFixture[fixtureID]
		fixtureRef := fixtureID
		bets = append(bets, bet.Bet{
			ID:            betID,
			UserID:        userID,
			CompetitionID: item.CompetitionID,
			RoundID:       roundID,
			FixtureID:     &fixtureRef,
			Prediction:    &prediction,
			SubmittedAt:   now,
		})
	}

	if err := s.betRepo.UpsertPredictions(ctx, bets); err != nil {
		return SubmitReceipt{}, fmt.Errorf("upsert predictions round=%s user=%s: %w", roundID, userID, err)
	}

	return SubmitReceipt{
		RoundID:     roundID,
		Accepted:    len(bets),
		SubmittedAt: now,
	}, nil
}

// ListMine returns every ledger row the user holds in a competition,
// predictions and retroactive awards alike.
func (s *BetService) ListMine(ctx context.Context, userID, competitionID string) ([]bet.Bet, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BetService.ListMine")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrUnauthenticated)
	}
	competitionID = strings.TrimSpace(competitionID)
	if competitionID == "" {
		return nil, fmt.Errorf("%w: competition id is required", ErrInvalidInput)
	}

	bets, err := s.betRepo.ListByUserAndCompetition(ctx, userID, competitionID)
	if err != nil {
		return nil, fmt.Errorf("list bets user=%s competition=%s: %w", userID, competitionID, err)
	}
	return bets, nil
}
