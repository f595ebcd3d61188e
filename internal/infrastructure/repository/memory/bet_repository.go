package memory

import (
	"context"
	"sync"

	"github.com/matchpick/predictor-league/internal/domain/bet"
)

// BetRepository is the in-memory points ledger. One mutex covers every write
// path, which is what stands in for the SQL row lock on the round.
type BetRepository struct {
	mu   sync.RWMutex
	bets []bet.Bet
}

func NewBetRepository(bets []bet.Bet) *BetRepository {
	return &BetRepository{bets: append([]bet.Bet(nil), bets...)}
}

func (r *BetRepository) UpsertPredictions(_ context.Context, bets []bet.Bet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, incoming := range bets {
		replaced := false
		for i, existing := range r.bets {
			if existing.UserID != incoming.UserID ||
				existing.FixtureID == nil || incoming.FixtureID == nil ||
				*existing.FixtureID != *incoming.FixtureID {
				continue
			}
			existing.Prediction = incoming.Prediction
			existing.RoundID = incoming.RoundID
			existing.SubmittedAt = incoming.SubmittedAt
			r.bets[i] = existing
			replaced = true
			break
		}
		if !replaced {
			r.bets = append(r.bets, incoming)
		}
	}
	return nil
}

func (r *BetRepository) ListByRound(_ context.Context, roundID string) ([]bet.Bet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []bet.Bet
	for _, item := range r.bets {
		if item.RoundID == roundID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *BetRepository) ListByCompetition(_ context.Context, competitionID string) ([]bet.Bet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []bet.Bet
	for _, item := range r.bets {
		if item.CompetitionID == competitionID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *BetRepository) ListByUserAndCompetition(_ context.Context, userID, competitionID string) ([]bet.Bet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []bet.Bet
	for _, item := range r.bets {
		if item.UserID == userID && item.CompetitionID == competitionID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *BetRepository) ApplyRoundPoints(_ context.Context, roundID string, updates []bet.PointsUpdate, clearFirst bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if clearFirst {
		for i, item := range r.bets {
			if item.RoundID == roundID && !item.IsRetroactive {
				item.PointsAwarded = nil
				item.CupPointsAwarded = nil
				r.bets[i] = item
			}
		}
	}
	for _, update := range updates {
		for i, item := range r.bets {
			if item.ID != update.BetID {
				continue
			}
			points := update.Points
			item.PointsAwarded = &points
			if update.CupPoints != nil {
				cup := *update.CupPoints
				item.CupPointsAwarded = &cup
			}
			r.bets[i] = item
			break
		}
	}
	return nil
}

func (r *BetRepository) ClearCupPoints(_ context.Context, roundIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	targets := make(map[string]struct{}, len(roundIDs))
	for _, id := range roundIDs {
		targets[id] = struct{}{}
	}
	for i, item := range r.bets {
		if _, ok := targets[item.RoundID]; ok {
			item.CupPointsAwarded = nil
			r.bets[i] = item
		}
	}
	return nil
}

func (r *BetRepository) ApplyCupPoints(_ context.Context, roundID string, updates []bet.PointsUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, update := range updates {
		for i, item := range r.bets {
			if item.ID != update.BetID || item.RoundID != roundID {
				continue
			}
			cup := update.Points
			item.CupPointsAwarded = &cup
			r.bets[i] = item
			break
		}
	}
	return nil
}

func (r *BetRepository) InsertRetroactiveAward(_ context.Context, award bet.Bet) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range r.bets {
		if item.UserID == award.UserID && item.RoundID == award.RoundID {
			return false, nil
		}
	}
	r.bets = append(r.bets, award)
	return true, nil
}
