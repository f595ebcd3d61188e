package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/matchpick/predictor-league/internal/domain/audit"
	"github.com/matchpick/predictor-league/internal/domain/bet"
	"github.com/matchpick/predictor-league/internal/domain/round"
	"github.com/matchpick/predictor-league/internal/domain/user"
	"github.com/matchpick/predictor-league/internal/platform/id"
	"github.com/matchpick/predictor-league/internal/platform/logging"
)

const (
	retroStatusAwarded    = "awarded"
	retroStatusSkipped    = "skipped"
	retroStatusNoBaseline = "no_baseline"
	retroStatusFailed     = "failed"

	maxRetroWorkers = 4
)

// RetroService backfills points for users who joined after rounds were
// already scored. A user never does worse than the worst real competitor:
// each missing round is filled with the lowest league total any existing
// participant earned in it. Awards land in the league ledger only; the cup
// denominator differs per user by design and is left alone.
type RetroService struct {
	roundRepo round.Repository
	betRepo   bet.Repository
	userRepo  user.Repository
	standings StandingsInvalidator
	auditSink audit.Sink
	monitor   OperationMonitor
	logger    *logging.Logger
	idGen     id.Generator
	now       func() time.Time
}

func NewRetroService(
	roundRepo round.Repository,
	betRepo bet.Repository,
	userRepo user.Repository,
	standings StandingsInvalidator,
	auditSink audit.Sink,
	logger *logging.Logger,
	idGen id.Generator,
) *RetroService {
	if auditSink == nil {
		auditSink = audit.NopSink{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RetroService{
		roundRepo: roundRepo,
		betRepo:   betRepo,
		userRepo:  userRepo,
		standings: standings,
		auditSink: auditSink,
		monitor:   NopMonitor(),
		logger:    logger,
		idGen:     idGen,
		now:       time.Now,
	}
}

func (s *RetroService) SetMonitor(monitor OperationMonitor) {
	if monitor != nil {
		s.monitor = monitor
	}
}

type AllocateUserInput struct {
	UserID        string
	CompetitionID string
	// FromSequence narrows the backfill to rounds at or after this sequence.
	FromSequence *int
	DryRun       bool
}

type RetroRoundResult struct {
	RoundID  string `json:"round_id"`
	Sequence int    `json:"sequence"`
	Status   string `json:"status"`
	Points   int    `json:"points"`
	Message  string `json:"message,omitempty"`
}

type RetroResult struct {
	UserID          string             `json:"user_id"`
	CompetitionID   string             `json:"competition_id"`
	DryRun          bool               `json:"dry_run"`
	RoundsProcessed int                `json:"rounds_processed"`
	RoundsAwarded   int                `json:"rounds_awarded"`
	RoundsSkipped   int                `json:"rounds_skipped"`
	PointsAwarded   int                `json:"points_awarded"`
	Rounds          []RetroRoundResult `json:"rounds"`
}

// AllocateForUser backfills one user across a competition. Safe to re-run:
// any round where the user already holds a row is skipped, so the second
// pass awards nothing.
func (s *RetroService) AllocateForUser(ctx context.Context, input AllocateUserInput) (RetroResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RetroService.AllocateForUser")
	defer span.End()

	input.UserID = strings.TrimSpace(input.UserID)
	input.CompetitionID = strings.TrimSpace(input.CompetitionID)
	if input.UserID == "" {
		return RetroResult{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if input.CompetitionID == "" {
		return RetroResult{}, fmt.Errorf("%w: competition id is required", ErrInvalidInput)
	}
	if input.FromSequence != nil && *input.FromSequence <= 0 {
		return RetroResult{}, fmt.Errorf("%w: from_sequence must be greater than zero", ErrInvalidInput)
	}

	_, exists, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		return RetroResult{}, fmt.Errorf("get user for retro allocation: %w", err)
	}
	if !exists {
		return RetroResult{}, fmt.Errorf("%w: user=%s", ErrNotFound, input.UserID)
	}

	result, err := s.allocateForUser(ctx, input)
	if err != nil {
		return RetroResult{}, err
	}

	if !input.DryRun && result.PointsAwarded > 0 {
		s.refreshStandings(ctx, input.CompetitionID)
		s.emitAudit(ctx, audit.Event{
			Action:        audit.ActionRetroAllocated,
			CompetitionID: input.CompetitionID,
			UserID:        input.UserID,
			Detail: map[string]string{
				"rounds_awarded": fmt.Sprintf("%d", result.RoundsAwarded),
				"points_awarded": fmt.Sprintf("%d", result.PointsAwarded),
			},
			OccurredAt: s.now().UTC(),
		})
	}
	return result, nil
}

func (s *RetroService) allocateForUser(ctx context.Context, input AllocateUserInput) (RetroResult, error) {
	rounds, err := s.roundRepo.ListScoredByCompetition(ctx, input.CompetitionID)
	if err != nil {
		return RetroResult{}, fmt.Errorf("list scored rounds for retro: %w", err)
	}

	result := RetroResult{
		UserID:        input.UserID,
		CompetitionID: input.CompetitionID,
		DryRun:        input.DryRun,
		Rounds:        make([]RetroRoundResult, 0, len(rounds)),
	}

	for _, currentRound := range rounds {
		if input.FromSequence != nil && currentRound.Sequence < *input.FromSequence {
			continue
		}
		result.RoundsProcessed++

		row, err := s.allocateRound(ctx, input, currentRound)
		if err != nil {
			return RetroResult{}, err
		}
		result.Rounds = append(result.Rounds, row)
		switch row.Status {
		case retroStatusAwarded:
			result.RoundsAwarded++
			result.PointsAwarded += row.Points
		default:
			result.RoundsSkipped++
		}
	}
	return result, nil
}

func (s *RetroService) allocateRound(ctx context.Context, input AllocateUserInput, currentRound round.Round) (RetroRoundResult, error) {
	row := RetroRoundResult{RoundID: currentRound.ID, Sequence: currentRound.Sequence}

	bets, err := s.betRepo.ListByRound(ctx, currentRound.ID)
	if err != nil {
		return RetroRoundResult{}, fmt.Errorf("list bets for retro round=%s: %w", currentRound.ID, err)
	}

	userHasRow := false
	lowest := 0
	peers := 0
	totalsByPeer := make(map[string]int)
	for _, item := range bets {
		if item.UserID == input.UserID {
			userHasRow = true
			continue
		}
		if !item.HasLeaguePoints() {
			continue
		}
		totalsByPeer[item.UserID] += *item.PointsAwarded
	}
	for _, total := range totalsByPeer {
		if peers == 0 || total < lowest {
			lowest = total
		}
		peers++
	}

	if userHasRow {
		row.Status = retroStatusSkipped
		row.Message = "user already has points for this round"
		return row, nil
	}
	if peers == 0 {
		// Nothing to compare against. Soft warning, not an error.
		s.logger.WarnContext(ctx, "retro round skipped: no scored participants",
			"round_id", currentRound.ID, "user_id", input.UserID)
		row.Status = retroStatusNoBaseline
		row.Message = "no scored participants in round"
		return row, nil
	}

	row.Points = lowest
	if input.DryRun {
		row.Status = retroStatusAwarded
		return row, nil
	}

	awardID, err := s.idGen.NewID()
	if err != nil {
		return RetroRoundResult{}, fmt.Errorf("generate retro award id: %w", err)
	}
	points := lowest
	inserted, err := s.betRepo.InsertRetroactiveAward(ctx, bet.Bet{
		ID:            awardID,
		UserID:        input.UserID,
		CompetitionID: input.CompetitionID,
		RoundID:       currentRound.ID,
		PointsAwarded: &points,
		IsRetroactive: true,
		SubmittedAt:   s.now().UTC(),
	})
	if err != nil {
		return RetroRoundResult{}, fmt.Errorf("insert retro award round=%s user=%s: %w", currentRound.ID, input.UserID, err)
	}
	if !inserted {
		row.Status = retroStatusSkipped
		row.Points = 0
		row.Message = "award already present"
		return row, nil
	}

	row.Status = retroStatusAwarded
	return row, nil
}

type AllocateBulkInput struct {
	CompetitionID string
	CreatedAfter  time.Time
	MaxWorkers    int
	DryRun        bool
}

type BulkRetroUserResult struct {
	UserID        string `json:"user_id"`
	Status        string `json:"status"`
	RoundsAwarded int    `json:"rounds_awarded"`
	PointsAwarded int    `json:"points_awarded"`
	Message       string `json:"message,omitempty"`
}

type BulkRetroResult struct {
	CompetitionID string                `json:"competition_id"`
	DryRun        bool                  `json:"dry_run"`
	UserCount     int                   `json:"user_count"`
	SuccessCount  int                   `json:"success_count"`
	FailedCount   int                   `json:"failed_count"`
	WorkerCount   int                   `json:"worker_count"`
	PointsAwarded int                   `json:"points_awarded"`
	Users         []BulkRetroUserResult `json:"users"`
	Errors        []string              `json:"errors,omitempty"`
}

// AllocateBulk backfills every competition participant created after the
// given instant. Creation alone does not join a competition: a user must
// already hold at least one ledger row there to be considered. Users run on
// a small bounded pool; one user's failure is recorded and the batch
// continues.
func (s *RetroService) AllocateBulk(ctx context.Context, input AllocateBulkInput) (BulkRetroResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RetroService.AllocateBulk")
	defer span.End()

	input.CompetitionID = strings.TrimSpace(input.CompetitionID)
	if input.CompetitionID == "" {
		return BulkRetroResult{}, fmt.Errorf("%w: competition id is required", ErrInvalidInput)
	}
	if input.CreatedAfter.IsZero() {
		return BulkRetroResult{}, fmt.Errorf("%w: created_after is required", ErrInvalidInput)
	}

	s.monitor.OperationStarted(ctx, "retro.allocate_bulk", map[string]string{"competition_id": input.CompetitionID})

	created, err := s.userRepo.ListCreatedAfter(ctx, input.CreatedAfter)
	if err != nil {
		s.monitor.OperationFailed(ctx, "retro.allocate_bulk", err)
		return BulkRetroResult{}, fmt.Errorf("list users for bulk retro: %w", err)
	}
	participants, err := s.userRepo.ListByCompetition(ctx, input.CompetitionID)
	if err != nil {
		s.monitor.OperationFailed(ctx, "retro.allocate_bulk", err)
		return BulkRetroResult{}, fmt.Errorf("list competition participants for bulk retro: %w", err)
	}
	members := make(map[string]struct{}, len(participants))
	for _, item := range participants {
		members[item.ID] = struct{}{}
	}
	users := make([]user.User, 0, len(created))
	for _, item := range created {
		if _, ok := members[item.ID]; ok {
			users = append(users, item)
		}
	}

	workerCount := normalizeRetroWorkerCount(input.MaxWorkers, len(users))
	result := BulkRetroResult{
		CompetitionID: input.CompetitionID,
		DryRun:        input.DryRun,
		UserCount:     len(users),
		WorkerCount:   workerCount,
		Users:         make([]BulkRetroUserResult, 0, len(users)),
	}
	if len(users) == 0 {
		s.monitor.OperationCompleted(ctx, "retro.allocate_bulk", map[string]string{"users": "0"})
		return result, nil
	}

	rows := make(chan BulkRetroUserResult, len(users))

	var successCount atomic.Int32
	var failedCount atomic.Int32
	var pointsAwarded atomic.Int64

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		s.monitor.OperationFailed(ctx, "retro.allocate_bulk", err)
		return BulkRetroResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var workers sync.WaitGroup
	for _, item := range users {
		item := item
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			row := BulkRetroUserResult{UserID: item.ID}
			userResult, err := s.allocateForUser(ctx, AllocateUserInput{
				UserID:        item.ID,
				CompetitionID: input.CompetitionID,
				DryRun:        input.DryRun,
			})
			if err != nil {
				row.Status = retroStatusFailed
				row.Message = err.Error()
				failedCount.Add(1)
				rows <- row
				return
			}

			row.Status = retroStatusAwarded
			if userResult.RoundsAwarded == 0 {
				row.Status = retroStatusSkipped
			}
			row.RoundsAwarded = userResult.RoundsAwarded
			row.PointsAwarded = userResult.PointsAwarded
			successCount.Add(1)
			pointsAwarded.Add(int64(userResult.PointsAwarded))
			rows <- row
		}); err != nil {
			workers.Done()
			s.monitor.OperationFailed(ctx, "retro.allocate_bulk", err)
			return BulkRetroResult{}, fmt.Errorf("submit user to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(rows)

	for row := range rows {
		result.Users = append(result.Users, row)
		if row.Status == retroStatusFailed {
			result.Errors = append(result.Errors, fmt.Sprintf("user=%s: %s", row.UserID, row.Message))
		}
	}
	sort.SliceStable(result.Users, func(i, j int) bool {
		return result.Users[i].UserID < result.Users[j].UserID
	})
	sort.Strings(result.Errors)

	result.SuccessCount = int(successCount.Load())
	result.FailedCount = int(failedCount.Load())
	result.PointsAwarded = int(pointsAwarded.Load())

	if !input.DryRun && result.PointsAwarded > 0 {
		s.refreshStandings(ctx, input.CompetitionID)
		s.emitAudit(ctx, audit.Event{
			Action:        audit.ActionRetroAllocated,
			CompetitionID: input.CompetitionID,
			Detail: map[string]string{
				"users":          fmt.Sprintf("%d", result.UserCount),
				"points_awarded": fmt.Sprintf("%d", result.PointsAwarded),
			},
			OccurredAt: s.now().UTC(),
		})
	}
	s.monitor.OperationCompleted(ctx, "retro.allocate_bulk", map[string]string{
		"users":  fmt.Sprintf("%d", result.UserCount),
		"failed": fmt.Sprintf("%d", result.FailedCount),
	})
	return result, nil
}

// refreshStandings drops cached tables after an award. Standings recompute
// on the next read, so a failure here only delays freshness.
func (s *RetroService) refreshStandings(ctx context.Context, competitionID string) {
	if s.standings == nil || competitionID == "" {
		return
	}
	s.standings.DeletePrefix(ctx, standingsCachePrefix(competitionID))
}

func (s *RetroService) emitAudit(ctx context.Context, event audit.Event) {
	if err := s.auditSink.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}

func normalizeRetroWorkerCount(value int, userCount int) int {
	if userCount <= 0 {
		return 1
	}
	if value <= 0 {
		value = 1
	}
	if value > maxRetroWorkers {
		value = maxRetroWorkers
	}
	if value > userCount {
		value = userCount
	}
	return value
}
