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

const (
	defaultCupActivationThreshold     = 0.60
	defaultCupRemainingFixtureCeiling = 5
)

// CupConfig carries the activation knobs. The defaults match observed
// behavior but both values stay configurable.
type CupConfig struct {
	ActivationThreshold     float64
	RemainingFixtureCeiling int
}

func NormalizeCupConfig(cfg CupConfig) CupConfig {
	if cfg.ActivationThreshold <= 0 || cfg.ActivationThreshold > 1 {
		cfg.ActivationThreshold = defaultCupActivationThreshold
	}
	if cfg.RemainingFixtureCeiling <= 0 {
		cfg.RemainingFixtureCeiling = defaultCupRemainingFixtureCeiling
	}
	return cfg
}

type CupService struct {
	seasonRepo  season.Repository
	roundRepo   round.Repository
	fixtureRepo fixture.Repository
	betRepo     bet.Repository
	standings   StandingsInvalidator
	auditSink   audit.Sink
	monitor     OperationMonitor
	logger      *logging.Logger
	cfg         CupConfig
	now         func() time.Time
}

func NewCupService(
	seasonRepo season.Repository,
	roundRepo round.Repository,
	fixtureRepo fixture.Repository,
	betRepo bet.Repository,
	standings StandingsInvalidator,
	auditSink audit.Sink,
	logger *logging.Logger,
	cfg CupConfig,
) *CupService {
	if auditSink == nil {
		auditSink = audit.NopSink{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CupService{
		seasonRepo:  seasonRepo,
		roundRepo:   roundRepo,
		fixtureRepo: fixtureRepo,
		betRepo:     betRepo,
		standings:   standings,
		auditSink:   auditSink,
		monitor:     NopMonitor(),
		logger:      logger,
		cfg:         NormalizeCupConfig(cfg),
		now:         time.Now,
	}
}

func (s *CupService) SetMonitor(monitor OperationMonitor) {
	if monitor != nil {
		s.monitor = monitor
	}
}

type CupActivationResult struct {
	SeasonID      string  `json:"season_id"`
	Activated     bool    `json:"activated"`
	AlreadyActive bool    `json:"already_active"`
	TeamCount     int     `json:"team_count"`
	TeamsNearDone int     `json:"teams_near_done"`
	Fraction      float64 `json:"fraction"`
	Threshold     float64 `json:"threshold"`
	RoundsStamped int     `json:"rounds_stamped"`
}

// DetectActivation checks whether enough teams are near the end of their
// schedule to switch the cup on. Activation is one-way: once the season
// carries the timestamp, every later run is a no-op.
func (s *CupService) DetectActivation(ctx context.Context, competitionID string) (CupActivationResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CupService.DetectActivation")
	defer span.End()

	competitionID = strings.TrimSpace(competitionID)
	if competitionID == "" {
		return CupActivationResult{}, fmt.Errorf("%w: competition id is required", ErrInvalidInput)
	}

	currentSeason, exists, err := s.seasonRepo.GetCurrentByCompetition(ctx, competitionID)
	if err != nil {
		return CupActivationResult{}, fmt.Errorf("get current season: %w", err)
	}
	if !exists {
		return CupActivationResult{}, fmt.Errorf("%w: no current season for competition=%s", ErrNotFound, competitionID)
	}

	result := CupActivationResult{
		SeasonID:  currentSeason.ID,
		Threshold: s.cfg.ActivationThreshold,
	}
	if currentSeason.IsCupActivated() {
		result.AlreadyActive = true
		return result, nil
	}

	fixtures, err := s.fixtureRepo.ListBySeason(ctx, currentSeason.ID)
	if err != nil {
		return CupActivationResult{}, fmt.Errorf("list season fixtures for cup detection: %w", err)
	}

	remainingByTeam := make(map[string]int)
	for _, item := range fixtures {
		for _, teamID := range []string{item.HomeTeamID, item.AwayTeamID} {
			if teamID == "" {
				continue
			}
			if _, seen := remainingByTeam[teamID]; !seen {
				remainingByTeam[teamID] = 0
			}
			if item.CountsAsRemaining() {
				remainingByTeam[teamID]++
			}
		}
	}

	result.TeamCount = len(remainingByTeam)
	if result.TeamCount == 0 {
		return result, nil
	}
	for _, remaining := range remainingByTeam {
		if remaining <= s.cfg.RemainingFixtureCeiling {
			result.TeamsNearDone++
		}
	}
	result.Fraction = float64(result.TeamsNearDone) / float64(result.TeamCount)
	if result.Fraction < s.cfg.ActivationThreshold {
		return result, nil
	}

	now := s.now().UTC()
	activated, err := s.seasonRepo.MarkCupActivated(ctx, currentSeason.ID, now)
	if err != nil {
		return CupActivationResult{}, fmt.Errorf("mark season cup activated: %w", err)
	}
	if !activated {
		// Lost the race to a concurrent detector run.
		result.AlreadyActive = true
		return result, nil
	}
	result.Activated = true

	stamped, err := s.stampUpcomingRounds(ctx, competitionID, now)
	if err != nil {
		// The season stamp is the source of truth; round stamps are a
		// convenience the next run can fill in.
		s.logger.WarnContext(ctx, "failed to stamp rounds after cup activation", "season_id", currentSeason.ID, "error", err)
	}
	result.RoundsStamped = stamped

	s.emitAudit(ctx, audit.Event{
		Action:        audit.ActionCupActivated,
		CompetitionID: competitionID,
		SeasonID:      currentSeason.ID,
		Detail: map[string]string{
			"fraction":  fmt.Sprintf("%.2f", result.Fraction),
			"threshold": fmt.Sprintf("%.2f", result.Threshold),
		},
		OccurredAt: now,
	})
	return result, nil
}

func (s *CupService) stampUpcomingRounds(ctx context.Context, competitionID string, activatedAt time.Time) (int, error) {
	rounds, err := s.roundRepo.ListByCompetition(ctx, competitionID)
	if err != nil {
		return 0, fmt.Errorf("list rounds for cup stamping: %w", err)
	}

	stamped := 0
	for _, item := range rounds {
		if item.CupActivatedAt != nil {
			continue
		}
		if !item.EarliestKickoffAt.After(activatedAt) {
			continue
		}
		ok, err := s.roundRepo.MarkCupActivated(ctx, item.ID, activatedAt)
		if err != nil {
			return stamped, fmt.Errorf("mark round cup activated round=%s: %w", item.ID, err)
		}
		if ok {
			stamped++
		}
	}
	return stamped, nil
}

type CupRecomputeResult struct {
	RoundsProcessed  int      `json:"rounds_processed"`
	BetsScored       int      `json:"bets_scored"`
	CupPointsAwarded int      `json:"cup_points_awarded"`
	Errors           []string `json:"errors,omitempty"`
}

// RecomputeRound clears and re-derives cup points for one scored,
// cup-eligible round. League points are untouched.
func (s *CupService) RecomputeRound(ctx context.Context, roundID string) (CupRecomputeResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CupService.RecomputeRound")
	defer span.End()

	roundID = strings.TrimSpace(roundID)
	if roundID == "" {
		return CupRecomputeResult{}, fmt.Errorf("%w: round id is required", ErrInvalidInput)
	}

	currentRound, exists, err := s.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		return CupRecomputeResult{}, fmt.Errorf("get round for cup recompute: %w", err)
	}
	if !exists {
		return CupRecomputeResult{}, fmt.Errorf("%w: round=%s", ErrNotFound, roundID)
	}

	eligible, err := s.roundCupEligible(ctx, currentRound)
	if err != nil {
		return CupRecomputeResult{}, err
	}
	if !currentRound.IsScored() || !eligible {
		return CupRecomputeResult{}, fmt.Errorf("%w: round=%s is not a scored cup round", ErrInvalidInput, roundID)
	}

	if err := s.betRepo.ClearCupPoints(ctx, []string{roundID}); err != nil {
		return CupRecomputeResult{}, fmt.Errorf("clear cup points round=%s: %w", roundID, err)
	}
	result, err := s.recomputeRoundCupPoints(ctx, currentRound)
	if err != nil {
		return CupRecomputeResult{}, err
	}
	result.RoundsProcessed = 1

	s.invalidateStandings(ctx, currentRound.CompetitionID)
	s.emitAudit(ctx, audit.Event{
		Action:        audit.ActionCupRecomputed,
		CompetitionID: currentRound.CompetitionID,
		SeasonID:      currentRound.SeasonID,
		RoundID:       roundID,
		OccurredAt:    s.now().UTC(),
	})
	return result, nil
}

// RecomputeSinceActivation clears the cup column for every scored
// cup-eligible round of the competition, then re-derives each round. The
// clear covers the whole scope up front so a rerun never double counts.
func (s *CupService) RecomputeSinceActivation(ctx context.Context, competitionID string) (CupRecomputeResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CupService.RecomputeSinceActivation")
	defer span.End()

	competitionID = strings.TrimSpace(competitionID)
	if competitionID == "" {
		return CupRecomputeResult{}, fmt.Errorf("%w: competition id is required", ErrInvalidInput)
	}

	s.monitor.OperationStarted(ctx, "cup.recompute_since_activation", map[string]string{"competition_id": competitionID})

	currentSeason, exists, err := s.seasonRepo.GetCurrentByCompetition(ctx, competitionID)
	if err != nil {
		s.monitor.OperationFailed(ctx, "cup.recompute_since_activation", err)
		return CupRecomputeResult{}, fmt.Errorf("get current season for cup recompute: %w", err)
	}
	if !exists {
		err := fmt.Errorf("%w: no current season for competition=%s", ErrNotFound, competitionID)
		s.monitor.OperationFailed(ctx, "cup.recompute_since_activation", err)
		return CupRecomputeResult{}, err
	}
	if !currentSeason.IsCupActivated() {
		err := fmt.Errorf("%w: cup is not activated for season=%s", ErrInvalidInput, currentSeason.ID)
		s.monitor.OperationFailed(ctx, "cup.recompute_since_activation", err)
		return CupRecomputeResult{}, err
	}

	rounds, err := s.roundRepo.ListScoredByCompetition(ctx, competitionID)
	if err != nil {
		s.monitor.OperationFailed(ctx, "cup.recompute_since_activation", err)
		return CupRecomputeResult{}, fmt.Errorf("list scored rounds for cup recompute: %w", err)
	}

	eligible := make([]round.Round, 0, len(rounds))
	roundIDs := make([]string, 0, len(rounds))
	for _, item := range rounds {
		if item.IsCupEligible(currentSeason.CupActivatedAt) {
			eligible = append(eligible, item)
			roundIDs = append(roundIDs, item.ID)
		}
	}

	result := CupRecomputeResult{}
	if len(eligible) == 0 {
		s.monitor.OperationCompleted(ctx, "cup.recompute_since_activation", map[string]string{"rounds": "0"})
		return result, nil
	}

	if err := s.betRepo.ClearCupPoints(ctx, roundIDs); err != nil {
		s.monitor.OperationFailed(ctx, "cup.recompute_since_activation", err)
		return CupRecomputeResult{}, fmt.Errorf("clear cup points for %d rounds: %w", len(roundIDs), err)
	}

	for _, item := range eligible {
		roundResult, err := s.recomputeRoundCupPoints(ctx, item)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("round=%s: %v", item.ID, err))
			continue
		}
		result.RoundsProcessed++
		result.BetsScored += roundResult.BetsScored
		result.CupPointsAwarded += roundResult.CupPointsAwarded
	}

	s.invalidateStandings(ctx, competitionID)
	s.emitAudit(ctx, audit.Event{
		Action:        audit.ActionCupRecomputed,
		CompetitionID: competitionID,
		SeasonID:      currentSeason.ID,
		Detail: map[string]string{
			"rounds_processed": fmt.Sprintf("%d", result.RoundsProcessed),
		},
		OccurredAt: s.now().UTC(),
	})
	s.monitor.OperationCompleted(ctx, "cup.recompute_since_activation", map[string]string{
		"rounds": fmt.Sprintf("%d", result.RoundsProcessed),
	})
	return result, nil
}

func (s *CupService) roundCupEligible(ctx context.Context, currentRound round.Round) (bool, error) {
	if currentRound.CupActivatedAt != nil {
		return true, nil
	}
	if currentRound.SeasonID == "" {
		return false, nil
	}
	currentSeason, exists, err := s.seasonRepo.GetByID(ctx, currentRound.SeasonID)
	if err != nil {
		return false, fmt.Errorf("get season for cup eligibility: %w", err)
	}
	if !exists {
		return false, nil
	}
	return currentRound.IsCupEligible(currentSeason.CupActivatedAt), nil
}

func (s *CupService) recomputeRoundCupPoints(ctx context.Context, currentRound round.Round) (CupRecomputeResult, error) {
	fixtures, err := s.fixtureRepo.ListByRound(ctx, currentRound.ID)
	if err != nil {
		return CupRecomputeResult{}, fmt.Errorf("list fixtures for cup recompute round=%s: %w", currentRound.ID, err)
	}
	resultByFixture := make(map[string]fixture.Outcome, len(fixtures))
	for _, item := range fixtures {
		if item.IsPlayed() {
			resultByFixture[item.ID] = *item.Result
		}
	}

	bets, err := s.betRepo.ListByRound(ctx, currentRound.ID)
	if err != nil {
		return CupRecomputeResult{}, fmt.Errorf("list bets for cup recompute round=%s: %w", currentRound.ID, err)
	}

	result := CupRecomputeResult{}
	updates := make([]bet.PointsUpdate, 0, len(bets))
	for _, item := range bets {
		if item.IsRetroactive || item.FixtureID == nil || item.Prediction == nil {
			continue
		}
		outcome, played := resultByFixture[*item.FixtureID]
		if !played {
			continue
		}
		cupPoints := computePoints(*item.Prediction, outcome, currentRound.IsBonusRound)
		updates = append(updates, bet.PointsUpdate{BetID: item.ID, Points: cupPoints})
		result.BetsScored++
		result.CupPointsAwarded += cupPoints
	}

	if err := s.betRepo.ApplyCupPoints(ctx, currentRound.ID, updates); err != nil {
		return CupRecomputeResult{}, fmt.Errorf("apply cup points round=%s: %w", currentRound.ID, err)
	}
	return result, nil
}

func (s *CupService) invalidateStandings(ctx context.Context, competitionID string) {
	if s.standings == nil || competitionID == "" {
		return
	}
	s.standings.DeletePrefix(ctx, standingsCachePrefix(competitionID))
}

func (s *CupService) emitAudit(ctx context.Context, event audit.Event) {
	if err := s.auditSink.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
