package memory

import (
	"context"
	"sync"

	"github.com/matchpick/predictor-league/internal/domain/winner"
)

type WinnerRepository struct {
	mu      sync.RWMutex
	winners []winner.SeasonWinner
}

func NewWinnerRepository() *WinnerRepository {
	return &WinnerRepository{}
}

func (r *WinnerRepository) ListBySeason(_ context.Context, seasonID string) ([]winner.SeasonWinner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []winner.SeasonWinner
	for _, item := range r.winners {
		if item.SeasonID == seasonID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *WinnerRepository) ExistsForSeason(_ context.Context, seasonID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.winners {
		if item.SeasonID == seasonID {
			return true, nil
		}
	}
	return false, nil
}

func (r *WinnerRepository) InsertAll(_ context.Context, winners []winner.SeasonWinner) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, incoming := range winners {
		duplicate := false
		for _, existing := range r.winners {
			if existing.SeasonID == incoming.SeasonID && existing.UserID == incoming.UserID {
				duplicate = true
				break
			}
		}
		if !duplicate {
			r.winners = append(r.winners, incoming)
		}
	}
	return nil
}
