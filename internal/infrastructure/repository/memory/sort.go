package memory

import (
	"sort"

	"github.com/matchpick/predictor-league/internal/domain/fixture"
	"github.com/matchpick/predictor-league/internal/domain/round"
	"github.com/matchpick/predictor-league/internal/domain/season"
	"github.com/matchpick/predictor-league/internal/domain/user"
)

// Map iteration order is random; every list result is sorted so callers see
// the same ordering the SQL repositories produce.

func sortSeasons(items []season.Season) {
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
}

func sortRounds(items []round.Round) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Sequence != items[j].Sequence {
			return items[i].Sequence < items[j].Sequence
		}
		return items[i].ID < items[j].ID
	})
}

func sortFixtures(items []fixture.Fixture) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].KickoffAt.Equal(items[j].KickoffAt) {
			return items[i].KickoffAt.Before(items[j].KickoffAt)
		}
		return items[i].ID < items[j].ID
	})
}

func sortUsersByID(items []user.User) {
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
}
