package memory

import (
	"context"
	"sync"

	"github.com/matchpick/predictor-league/internal/domain/fixture"
)

type FixtureRepository struct {
	mu       sync.RWMutex
	fixtures map[string]fixture.Fixture
}

func NewFixtureRepository(fixtures []fixture.Fixture) *FixtureRepository {
	byID := make(map[string]fixture.Fixture, len(fixtures))
	for _, item := range fixtures {
		byID[item.ID] = item
	}
	return &FixtureRepository{fixtures: byID}
}

func (r *FixtureRepository) ListByIDs(_ context.Context, fixtureIDs []string) ([]fixture.Fixture, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]fixture.Fixture, 0, len(fixtureIDs))
	for _, id := range fixtureIDs {
		if item, ok := r.fixtures[id]; ok {
			out = append(out, item)
		}
	}
	sortFixtures(out)
	return out, nil
}

func (r *FixtureRepository) ListByRound(_ context.Context, roundID string) ([]fixture.Fixture, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []fixture.Fixture
	for _, item := range r.fixtures {
		if item.RoundID == roundID {
			out = append(out, item)
		}
	}
	sortFixtures(out)
	return out, nil
}

func (r *FixtureRepository) ListBySeason(_ context.Context, seasonID string) ([]fixture.Fixture, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []fixture.Fixture
	for _, item := range r.fixtures {
		if item.SeasonID == seasonID {
			out = append(out, item)
		}
	}
	sortFixtures(out)
	return out, nil
}
