package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/matchpick/predictor-league/internal/domain/audit"
	"github.com/matchpick/predictor-league/internal/domain/bet"
	"github.com/matchpick/predictor-league/internal/domain/fixture"
	"github.com/matchpick/predictor-league/internal/domain/round"
	"github.com/matchpick/predictor-league/internal/domain/season"
	"github.com/matchpick/predictor-league/internal/platform/logging"
)

const basePointValue = 1

// computePoints is the single scoring rule. A correct prediction earns the
// base value, doubled while a bonus flag is active (a bonus round, or a
// season running in bonus mode). Wrong earns zero.
// Results are persisted once per (user, fixture); recomputation only happens
// through an explicit recalculation pass that clears the round first.
func computePoints(prediction, result fixture.Outcome, bonusActive bool) int {
	if prediction != result {
		return 0
	}
	points := basePointValue
	if bonusActive {
		points *= 2
	}
	return points
}

// StandingsInvalidator drops cached standings after a ledger mutation.
type StandingsInvalidator interface {
	DeletePrefix(ctx context.Context, prefix string)
}

type ScoringService struct {
	roundRepo   round.Repository
	seasonRepo  season.Repository
	fixtureRepo fixture.Repository
	betRepo     bet.Repository
	standings   StandingsInvalidator
	auditSink   audit.Sink
	monitor     OperationMonitor
	logger      *logging.Logger
	now         func() time.Time
}

func NewScoringService(
	roundRepo round.Repository,
	seasonRepo season.Repository,
	fixtureRepo fixture.Repository,
	betRepo bet.Repository,
	standings StandingsInvalidator,
	auditSink audit.Sink,
	logger *logging.Logger,
) *ScoringService {
	if auditSink == nil {
		auditSink = audit.NopSink{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ScoringService{
		roundRepo:   roundRepo,
		seasonRepo:  seasonRepo,
		fixtureRepo: fixtureRepo,
		betRepo:     betRepo,
		standings:   standings,
		auditSink:   auditSink,
		monitor:     NopMonitor(),
		logger:      logger,
		now:         time.Now,
	}
}

// SetMonitor replaces the default no-op operation monitor.
func (s *ScoringService) SetMonitor(monitor OperationMonitor) {
	if monitor != nil {
		s.monitor = monitor
	}
}

type RoundScoreResult struct {
	RoundID          string `json:"round_id"`
	AlreadyScored    bool   `json:"already_scored"`
	BetsScored       int    `json:"bets_scored"`
	PointsAwarded    int    `json:"points_awarded"`
	CupPointsAwarded int    `json:"cup_points_awarded"`
	CupEligible      bool   `json:"cup_eligible"`
	SkippedUnplayed  int    `json:"skipped_unplayed"`
	SkippedLive      int    `json:"skipped_live"`
}

// ScoreRound computes league points (and cup points when the round is
// cup-eligible) for every bet whose fixture finished. The status transition
// to scored is written last so a crash mid-scoring leaves the round
// retryable rather than half-done.
func (s *ScoringService) ScoreRound(ctx context.Context, roundID string) (RoundScoreResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.ScoreRound")
	defer span.End()

	roundID = strings.TrimSpace(roundID)
	if roundID == "" {
		return RoundScoreResult{}, fmt.Errorf("%w: round id is required", ErrInvalidInput)
	}

	s.monitor.OperationStarted(ctx, "scoring.score_round", map[string]string{"round_id": roundID})

	currentRound, exists, err := s.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		s.monitor.OperationFailed(ctx, "scoring.score_round", err)
		return RoundScoreResult{}, fmt.Errorf("get round for scoring: %w", err)
	}
	if !exists {
		err := fmt.Errorf("%w: round=%s", ErrNotFound, roundID)
		s.monitor.OperationFailed(ctx, "scoring.score_round", err)
		return RoundScoreResult{}, err
	}
	if currentRound.IsScored() {
		s.monitor.OperationCompleted(ctx, "scoring.score_round", map[string]string{"round_id": roundID, "outcome": "already_scored"})
		return RoundScoreResult{RoundID: roundID, AlreadyScored: true}, nil
	}

	if round.NormalizeStatus(currentRound.Status) == round.StatusOpen {
		moved, err := s.roundRepo.UpdateStatus(ctx, roundID, round.StatusOpen, round.StatusScoring)
		if err != nil {
			s.monitor.OperationFailed(ctx, "scoring.score_round", err)
			return RoundScoreResult{}, fmt.Errorf("transition round to scoring: %w", err)
		}
		if !moved {
			// Another scorer got there first; reload and re-check the guard.
			reloaded, _, reloadErr := s.roundRepo.GetByID(ctx, roundID)
			if reloadErr != nil {
				s.monitor.OperationFailed(ctx, "scoring.score_round", reloadErr)
				return RoundScoreResult{}, fmt.Errorf("reload round after lost transition: %w", reloadErr)
			}
			if reloaded.IsScored() {
				s.monitor.OperationCompleted(ctx, "scoring.score_round", map[string]string{"round_id": roundID, "outcome": "already_scored"})
				return RoundScoreResult{RoundID: roundID, AlreadyScored: true}, nil
			}
			currentRound = reloaded
		}
	}

	result, err := s.writeRoundPoints(ctx, currentRound, false)
	if err != nil {
		s.monitor.OperationFailed(ctx, "scoring.score_round", err)
		return RoundScoreResult{}, err
	}

	moved, err := s.roundRepo.UpdateStatus(ctx, roundID, round.StatusScoring, round.StatusScored)
	if err != nil {
		s.monitor.OperationFailed(ctx, "scoring.score_round", err)
		return RoundScoreResult{}, fmt.Errorf("transition round to scored: %w", err)
	}
	if !moved {
		s.logger.WarnContext(ctx, "round status changed underneath scoring run", "round_id", roundID)
	}

	s.invalidateStandings(ctx, currentRound.CompetitionID)
	s.emitAudit(ctx, audit.Event{
		Action:        audit.ActionRoundScored,
		CompetitionID: currentRound.CompetitionID,
		SeasonID:      currentRound.SeasonID,
		RoundID:       roundID,
		Detail: map[string]string{
			"bets_scored":    fmt.Sprintf("%d", result.BetsScored),
			"points_awarded": fmt.Sprintf("%d", result.PointsAwarded),
		},
		OccurredAt: s.now().UTC(),
	})
	s.monitor.OperationCompleted(ctx, "scoring.score_round", map[string]string{"round_id": roundID, "outcome": "scored"})

	return result, nil
}

// RecalculateRound clears and re-derives every point in a scored round inside
// one repository transaction scoped to the round row. Never partial: either
// the whole round is rewritten or nothing changes.
func (s *ScoringService) RecalculateRound(ctx context.Context, roundID string) (RoundScoreResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.RecalculateRound")
	defer span.End()

	roundID = strings.TrimSpace(roundID)
	if roundID == "" {
		return RoundScoreResult{}, fmt.Errorf("%w: round id is required", ErrInvalidInput)
	}

	s.monitor.OperationStarted(ctx, "scoring.recalculate_round", map[string]string{"round_id": roundID})

	currentRound, exists, err := s.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		s.monitor.OperationFailed(ctx, "scoring.recalculate_round", err)
		return RoundScoreResult{}, fmt.Errorf("get round for recalculation: %w", err)
	}
	if !exists {
		err := fmt.Errorf("%w: round=%s", ErrNotFound, roundID)
		s.monitor.OperationFailed(ctx, "scoring.recalculate_round", err)
		return RoundScoreResult{}, err
	}
	if !currentRound.IsScored() {
		err := fmt.Errorf("%w: round=%s is not scored yet", ErrInvalidInput, roundID)
		s.monitor.OperationFailed(ctx, "scoring.recalculate_round", err)
		return RoundScoreResult{}, err
	}

	result, err := s.writeRoundPoints(ctx, currentRound, true)
	if err != nil {
		s.monitor.OperationFailed(ctx, "scoring.recalculate_round", err)
		return RoundScoreResult{}, err
	}

	s.invalidateStandings(ctx, currentRound.CompetitionID)
	s.emitAudit(ctx, audit.Event{
		Action:        audit.ActionRoundRecalced,
		CompetitionID: currentRound.CompetitionID,
		SeasonID:      currentRound.SeasonID,
		RoundID:       roundID,
		Detail: map[string]string{
			"bets_scored":    fmt.Sprintf("%d", result.BetsScored),
			"points_awarded": fmt.Sprintf("%d", result.PointsAwarded),
		},
		OccurredAt: s.now().UTC(),
	})
	s.monitor.OperationCompleted(ctx, "scoring.recalculate_round", map[string]string{"round_id": roundID})

	return result, nil
}

func (s *ScoringService) writeRoundPoints(ctx context.Context, currentRound round.Round, clearFirst bool) (RoundScoreResult, error) {
	var seasonCupActivatedAt *time.Time
	seasonBonusActive := false
	if currentRound.SeasonID != "" {
		currentSeason, exists, err := s.seasonRepo.GetByID(ctx, currentRound.SeasonID)
		if err != nil {
			return RoundScoreResult{}, fmt.Errorf("get season for scoring: %w", err)
		}
		if exists {
			seasonCupActivatedAt = currentSeason.CupActivatedAt
			seasonBonusActive = currentSeason.BonusModeActive
		}
	}
	cupEligible := currentRound.IsCupEligible(seasonCupActivatedAt)
	// The bonus multiplier applies when either the round is flagged or the
	// season-wide bonus mode is on.
	bonusActive := currentRound.IsBonusRound || seasonBonusActive

	fixtures, err := s.fixtureRepo.ListByRound(ctx, currentRound.ID)
	if err != nil {
		return RoundScoreResult{}, fmt.Errorf("list fixtures for scoring round=%s: %w", currentRound.ID, err)
	}
	resultByFixture := make(map[string]fixture.Outcome, len(fixtures))
	liveFixtures := make(map[string]bool)
	for _, item := range fixtures {
		switch {
		case item.IsPlayed():
			resultByFixture[item.ID] = *item.Result
		case fixture.IsLiveStatus(item.Status):
			liveFixtures[item.ID] = true
		}
	}
	if len(liveFixtures) > 0 {
		s.logger.WarnContext(ctx, "scoring round while fixtures are still in play",
			"round_id", currentRound.ID, "live_fixtures", len(liveFixtures))
	}

	bets, err := s.betRepo.ListByRound(ctx, currentRound.ID)
	if err != nil {
		return RoundScoreResult{}, fmt.Errorf("list bets for scoring round=%s: %w", currentRound.ID, err)
	}

	result := RoundScoreResult{RoundID: currentRound.ID, CupEligible: cupEligible}
	updates := make([]bet.PointsUpdate, 0, len(bets))
	for _, item := range bets {
		if item.IsRetroactive || item.FixtureID == nil || item.Prediction == nil {
			continue
		}
		outcome, played := resultByFixture[*item.FixtureID]
		if !played {
			if liveFixtures[*item.FixtureID] {
				result.SkippedLive++
			} else {
				result.SkippedUnplayed++
			}
			continue
		}

		points := computePoints(*item.Prediction, outcome, bonusActive)
		update := bet.PointsUpdate{BetID: item.ID, Points: points}
		if cupEligible {
			cupPoints := points
			update.CupPoints = &cupPoints
			result.CupPointsAwarded += cupPoints
		}
		updates = append(updates, update)
		result.BetsScored++
		result.PointsAwarded += points
	}

	if err := s.betRepo.ApplyRoundPoints(ctx, currentRound.ID, updates, clearFirst); err != nil {
		return RoundScoreResult{}, fmt.Errorf("apply round points round=%s: %w", currentRound.ID, err)
	}
	return result, nil
}

func (s *ScoringService) invalidateStandings(ctx context.Context, competitionID string) {
	if s.standings == nil || competitionID == "" {
		return
	}
	s.standings.DeletePrefix(ctx, standingsCachePrefix(competitionID))
}

func (s *ScoringService) emitAudit(ctx context.Context, event audit.Event) {
	if err := s.auditSink.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
