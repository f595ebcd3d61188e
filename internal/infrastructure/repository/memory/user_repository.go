package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/matchpick/predictor-league/internal/domain/user"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]user.User

	// bets is consulted for ListByCompetition, mirroring the SQL read-model
	// join against the ledger.
	bets *BetRepository
}

func NewUserRepository(users []user.User, bets *BetRepository) *UserRepository {
	byID := make(map[string]user.User, len(users))
	for _, item := range users {
		byID[item.ID] = item
	}
	return &UserRepository{users: byID, bets: bets}
}

func (r *UserRepository) GetByID(_ context.Context, userID string) (user.User, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.users[userID]
	return item, ok, nil
}

func (r *UserRepository) ListByIDs(_ context.Context, userIDs []string) ([]user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]user.User, 0, len(userIDs))
	for _, id := range userIDs {
		if item, ok := r.users[id]; ok {
			out = append(out, item)
		}
	}
	sortUsersByID(out)
	return out, nil
}

func (r *UserRepository) ListByCompetition(ctx context.Context, competitionID string) ([]user.User, error) {
	bets, err := r.bets.ListByCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []user.User
	for _, b := range bets {
		if _, ok := seen[b.UserID]; ok {
			continue
		}
		seen[b.UserID] = struct{}{}
		if item, ok := r.users[b.UserID]; ok {
			out = append(out, item)
		}
	}
	sortUsersByID(out)
	return out, nil
}

func (r *UserRepository) ListCreatedAfter(_ context.Context, createdAfter time.Time) ([]user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []user.User
	for _, item := range r.users {
		if item.CreatedAt.After(createdAfter) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
