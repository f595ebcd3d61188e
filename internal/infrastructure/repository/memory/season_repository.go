package memory

import (
	"context"
	"sync"
	"time"

	"github.com/matchpick/predictor-league/internal/domain/season"
)

// SeasonRepository keeps seasons in a map guarded by a RWMutex. The Mark*
// methods mirror the set-once semantics of the SQL implementation.
type SeasonRepository struct {
	mu      sync.RWMutex
	seasons map[string]season.Season
}

func NewSeasonRepository(seasons []season.Season) *SeasonRepository {
	byID := make(map[string]season.Season, len(seasons))
	for _, item := range seasons {
		byID[item.ID] = item
	}
	return &SeasonRepository{seasons: byID}
}

func (r *SeasonRepository) GetByID(_ context.Context, seasonID string) (season.Season, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.seasons[seasonID]
	return item, ok, nil
}

func (r *SeasonRepository) GetCurrentByCompetition(_ context.Context, competitionID string) (season.Season, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.seasons {
		if item.CompetitionID == competitionID && item.IsCurrent {
			return item, true, nil
		}
	}
	return season.Season{}, false, nil
}

func (r *SeasonRepository) ListDueForCompletion(_ context.Context, now time.Time) ([]season.Season, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []season.Season
	for _, item := range r.seasons {
		if item.CompletedAt == nil && !item.EndsAt.IsZero() && item.EndsAt.Before(now) {
			out = append(out, item)
		}
	}
	sortSeasons(out)
	return out, nil
}

func (r *SeasonRepository) ListAwaitingWinner(_ context.Context) ([]season.Season, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []season.Season
	for _, item := range r.seasons {
		if item.CompletedAt != nil && item.WinnerAt == nil {
			out = append(out, item)
		}
	}
	sortSeasons(out)
	return out, nil
}

func (r *SeasonRepository) MarkCupActivated(_ context.Context, seasonID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.seasons[seasonID]
	if !ok || item.CupActivatedAt != nil {
		return false, nil
	}
	stamp := at
	item.CupActivatedAt = &stamp
	r.seasons[seasonID] = item
	return true, nil
}

func (r *SeasonRepository) MarkCompleted(_ context.Context, seasonID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.seasons[seasonID]
	if !ok || item.CompletedAt != nil {
		return false, nil
	}
	stamp := at
	item.CompletedAt = &stamp
	r.seasons[seasonID] = item
	return true, nil
}

func (r *SeasonRepository) MarkWinnerDetermined(_ context.Context, seasonID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.seasons[seasonID]
	if !ok || item.WinnerAt != nil {
		return false, nil
	}
	stamp := at
	item.WinnerAt = &stamp
	r.seasons[seasonID] = item
	return true, nil
}
