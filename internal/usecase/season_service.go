package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/matchpick/predictor-league/internal/domain/audit"
	"github.com/matchpick/predictor-league/internal/domain/season"
	"github.com/matchpick/predictor-league/internal/domain/standings"
	"github.com/matchpick/predictor-league/internal/domain/winner"
	"github.com/matchpick/predictor-league/internal/platform/id"
	"github.com/matchpick/predictor-league/internal/platform/logging"
)

const (
	seasonStatusCompleted  = "completed"
	seasonStatusDetermined = "determined"
	seasonStatusSkipped    = "skipped"
	seasonStatusFailed     = "failed"

	maxSeasonWorkers = 4
)

type leagueStandingsReader interface {
	LeagueForSeason(ctx context.Context, competitionID, seasonID string) ([]standings.LeagueEntry, error)
}

// SeasonService drives the season lifecycle: active, then completed, then
// winner determined. Each transition is guarded by a set-once timestamp and
// fires exactly once; re-runs are reported as "already done", never errors.
type SeasonService struct {
	seasonRepo season.Repository
	winnerRepo winner.Repository
	standings  leagueStandingsReader
	auditSink  audit.Sink
	monitor    OperationMonitor
	logger     *logging.Logger
	idGen      id.Generator
	now        func() time.Time
}

func NewSeasonService(
	seasonRepo season.Repository,
	winnerRepo winner.Repository,
	standingsReader leagueStandingsReader,
	auditSink audit.Sink,
	logger *logging.Logger,
	idGen id.Generator,
) *SeasonService {
	if auditSink == nil {
		auditSink = audit.NopSink{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SeasonService{
		seasonRepo: seasonRepo,
		winnerRepo: winnerRepo,
		standings:  standingsReader,
		auditSink:  auditSink,
		monitor:    NopMonitor(),
		logger:     logger,
		idGen:      idGen,
		now:        time.Now,
	}
}

func (s *SeasonService) SetMonitor(monitor OperationMonitor) {
	if monitor != nil {
		s.monitor = monitor
	}
}

type SeasonUnitResult struct {
	SeasonID  string `json:"season_id"`
	Status    string `json:"status"`
	Winners   int    `json:"winners,omitempty"`
	TopPoints int    `json:"top_points,omitempty"`
	Message   string `json:"message,omitempty"`
}

type SeasonBatchResult struct {
	SeasonsProcessed int                `json:"seasons_processed"`
	SucceededCount   int                `json:"succeeded_count"`
	FailedCount      int                `json:"failed_count"`
	Seasons          []SeasonUnitResult `json:"seasons"`
	Errors           []string           `json:"errors,omitempty"`
}

// CompleteDueSeasons marks every active season whose end date has passed.
// One season's failure never blocks the rest of the batch.
func (s *SeasonService) CompleteDueSeasons(ctx context.Context) (SeasonBatchResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SeasonService.CompleteDueSeasons")
	defer span.End()

	s.monitor.OperationStarted(ctx, "season.complete_due", nil)

	now := s.now().UTC()
	due, err := s.seasonRepo.ListDueForCompletion(ctx, now)
	if err != nil {
		s.monitor.OperationFailed(ctx, "season.complete_due", err)
		return SeasonBatchResult{}, fmt.Errorf("list seasons due for completion: %w", err)
	}

	result := s.runBatch(ctx, due, func(ctx context.Context, item season.Season) SeasonUnitResult {
		return s.completeSeason(ctx, item, now, "scheduler")
	})

	s.monitor.OperationCompleted(ctx, "season.complete_due", map[string]string{
		"seasons": fmt.Sprintf("%d", result.SeasonsProcessed),
		"failed":  fmt.Sprintf("%d", result.FailedCount),
	})
	return result, nil
}

// ForceComplete completes one season regardless of its end date.
func (s *SeasonService) ForceComplete(ctx context.Context, seasonID, actor string) (SeasonUnitResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SeasonService.ForceComplete")
	defer span.End()

	seasonID = strings.TrimSpace(seasonID)
	if seasonID == "" {
		return SeasonUnitResult{}, fmt.Errorf("%w: season id is required", ErrInvalidInput)
	}

	item, exists, err := s.seasonRepo.GetByID(ctx, seasonID)
	if err != nil {
		return SeasonUnitResult{}, fmt.Errorf("get season for force completion: %w", err)
	}
	if !exists {
		return SeasonUnitResult{}, fmt.Errorf("%w: season=%s", ErrNotFound, seasonID)
	}
	if item.IsCompleted() {
		return SeasonUnitResult{}, fmt.Errorf("%w: season=%s", ErrSeasonAlreadyCompleted, seasonID)
	}

	row := s.completeSeason(ctx, item, s.now().UTC(), actor)
	if row.Status == seasonStatusFailed {
		return row, fmt.Errorf("force complete season=%s: %s", seasonID, row.Message)
	}
	return row, nil
}

func (s *SeasonService) completeSeason(ctx context.Context, item season.Season, at time.Time, actor string) SeasonUnitResult {
	row := SeasonUnitResult{SeasonID: item.ID}

	marked, err := s.seasonRepo.MarkCompleted(ctx, item.ID, at)
	if err != nil {
		row.Status = seasonStatusFailed
		row.Message = err.Error()
		return row
	}
	if !marked {
		row.Status = seasonStatusSkipped
		row.Message = "season already completed"
		return row
	}

	row.Status = seasonStatusCompleted
	s.emitAudit(ctx, audit.Event{
		Action:        audit.ActionSeasonCompleted,
		CompetitionID: item.CompetitionID,
		SeasonID:      item.ID,
		UserID:        actor,
		OccurredAt:    at,
	})
	return row
}

// DetermineWinners runs against completed seasons that have no winner yet.
// Every user tied at the top total becomes a winner; the winner rows land
// first and the season timestamp last, so a crash in between resumes cleanly.
func (s *SeasonService) DetermineWinners(ctx context.Context) (SeasonBatchResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SeasonService.DetermineWinners")
	defer span.End()

	s.monitor.OperationStarted(ctx, "season.determine_winners", nil)

	awaiting, err := s.seasonRepo.ListAwaitingWinner(ctx)
	if err != nil {
		s.monitor.OperationFailed(ctx, "season.determine_winners", err)
		return SeasonBatchResult{}, fmt.Errorf("list seasons awaiting winner: %w", err)
	}

	result := s.runBatch(ctx, awaiting, s.determineWinner)

	s.monitor.OperationCompleted(ctx, "season.determine_winners", map[string]string{
		"seasons": fmt.Sprintf("%d", result.SeasonsProcessed),
		"failed":  fmt.Sprintf("%d", result.FailedCount),
	})
	return result, nil
}

func (s *SeasonService) determineWinner(ctx context.Context, item season.Season) SeasonUnitResult {
	row := SeasonUnitResult{SeasonID: item.ID}
	now := s.now().UTC()

	if item.IsWinnerDetermined() {
		row.Status = seasonStatusSkipped
		row.Message = "winner already determined"
		return row
	}

	hasRows, err := s.winnerRepo.ExistsForSeason(ctx, item.ID)
	if err != nil {
		row.Status = seasonStatusFailed
		row.Message = fmt.Sprintf("check existing winners: %v", err)
		return row
	}
	if !hasRows {
		table, err := s.standings.LeagueForSeason(ctx, item.CompetitionID, item.ID)
		if err != nil {
			row.Status = seasonStatusFailed
			row.Message = fmt.Sprintf("read final standings: %v", err)
			return row
		}
		if len(table) == 0 {
			row.Status = seasonStatusSkipped
			row.Message = "no participants in season"
			return row
		}

		topPoints := table[0].TotalPoints
		winners := make([]winner.SeasonWinner, 0, 1)
		for _, entry := range table {
			if entry.TotalPoints != topPoints {
				break
			}
			winnerID, err := s.idGen.NewID()
			if err != nil {
				row.Status = seasonStatusFailed
				row.Message = fmt.Sprintf("generate winner id: %v", err)
				return row
			}
			winners = append(winners, winner.SeasonWinner{
				ID:           winnerID,
				SeasonID:     item.ID,
				UserID:       entry.UserID,
				TotalPoints:  entry.TotalPoints,
				DeterminedAt: now,
			})
		}

		if err := s.winnerRepo.InsertAll(ctx, winners); err != nil {
			row.Status = seasonStatusFailed
			row.Message = fmt.Sprintf("insert winners: %v", err)
			return row
		}
		row.Winners = len(winners)
		row.TopPoints = topPoints
	}

	marked, err := s.seasonRepo.MarkWinnerDetermined(ctx, item.ID, now)
	if err != nil {
		row.Status = seasonStatusFailed
		row.Message = fmt.Sprintf("mark winner determined: %v", err)
		return row
	}
	if !marked {
		row.Status = seasonStatusSkipped
		row.Message = "winner already determined"
		return row
	}

	row.Status = seasonStatusDetermined
	s.emitAudit(ctx, audit.Event{
		Action:        audit.ActionWinnerDetermined,
		CompetitionID: item.CompetitionID,
		SeasonID:      item.ID,
		Detail: map[string]string{
			"winners":    fmt.Sprintf("%d", row.Winners),
			"top_points": fmt.Sprintf("%d", row.TopPoints),
		},
		OccurredAt: now,
	})
	return row
}

func (s *SeasonService) runBatch(
	ctx context.Context,
	seasons []season.Season,
	unit func(ctx context.Context, item season.Season) SeasonUnitResult,
) SeasonBatchResult {
	result := SeasonBatchResult{
		SeasonsProcessed: len(seasons),
		Seasons:          make([]SeasonUnitResult, 0, len(seasons)),
	}
	if len(seasons) == 0 {
		return result
	}

	workerCount := maxSeasonWorkers
	if len(seasons) < workerCount {
		workerCount = len(seasons)
	}

	rows := make(chan SeasonUnitResult, len(seasons))
	batch := pool.New().WithMaxGoroutines(workerCount)
	for _, item := range seasons {
		item := item
		batch.Go(func() {
			rows <- unit(ctx, item)
		})
	}
	batch.Wait()
	close(rows)

	for row := range rows {
		result.Seasons = append(result.Seasons, row)
		switch row.Status {
		case seasonStatusFailed:
			result.FailedCount++
			result.Errors = append(result.Errors, fmt.Sprintf("season=%s: %s", row.SeasonID, row.Message))
		default:
			result.SucceededCount++
		}
	}
	sort.SliceStable(result.Seasons, func(i, j int) bool {
		return result.Seasons[i].SeasonID < result.Seasons[j].SeasonID
	})
	sort.Strings(result.Errors)
	return result
}

func (s *SeasonService) emitAudit(ctx context.Context, event audit.Event) {
	if err := s.auditSink.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
