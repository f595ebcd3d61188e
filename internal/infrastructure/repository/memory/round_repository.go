package memory

import (
	"context"
	"sync"
	"time"

	"github.com/matchpick/predictor-league/internal/domain/round"
)

type RoundRepository struct {
	mu     sync.RWMutex
	rounds map[string]round.Round
}

func NewRoundRepository(rounds []round.Round) *RoundRepository {
	byID := make(map[string]round.Round, len(rounds))
	for _, item := range rounds {
		item.Status = round.NormalizeStatus(item.Status)
		byID[item.ID] = item
	}
	return &RoundRepository{rounds: byID}
}

func (r *RoundRepository) GetByID(_ context.Context, roundID string) (round.Round, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.rounds[roundID]
	return item, ok, nil
}

func (r *RoundRepository) ListByCompetition(_ context.Context, competitionID string) ([]round.Round, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []round.Round
	for _, item := range r.rounds {
		if item.CompetitionID == competitionID {
			out = append(out, item)
		}
	}
	sortRounds(out)
	return out, nil
}

func (r *RoundRepository) ListScoredByCompetition(_ context.Context, competitionID string) ([]round.Round, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []round.Round
	for _, item := range r.rounds {
		if item.CompetitionID == competitionID && item.IsScored() {
			out = append(out, item)
		}
	}
	sortRounds(out)
	return out, nil
}

// UpdateStatus is the in-memory compare-and-swap on the round status.
func (r *RoundRepository) UpdateStatus(_ context.Context, roundID, from, to string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.rounds[roundID]
	if !ok || round.NormalizeStatus(item.Status) != round.NormalizeStatus(from) {
		return false, nil
	}
	item.Status = round.NormalizeStatus(to)
	r.rounds[roundID] = item
	return true, nil
}

func (r *RoundRepository) MarkCupActivated(_ context.Context, roundID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.rounds[roundID]
	if !ok || item.CupActivatedAt != nil {
		return false, nil
	}
	stamp := at
	item.CupActivatedAt = &stamp
	r.rounds[roundID] = item
	return true, nil
}
