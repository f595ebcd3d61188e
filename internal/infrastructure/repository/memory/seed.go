package memory

import (
	"time"

	"github.com/matchpick/predictor-league/internal/domain/fixture"
	"github.com/matchpick/predictor-league/internal/domain/round"
	"github.com/matchpick/predictor-league/internal/domain/season"
	"github.com/matchpick/predictor-league/internal/domain/user"
)

const (
	CompetitionIDLiga1Indonesia = "idn-liga-1"
	SeasonIDLiga1_2025          = "idn-liga-1-2025"
)

// Seed data for local mode: one current season, an already scored opening
// round and an open second round.
func SeedSeasons() []season.Season {
	return []season.Season{
		{
			ID:            SeasonIDLiga1_2025,
			CompetitionID: CompetitionIDLiga1Indonesia,
			Label:         "Liga 1 Indonesia 2025/2026",
			IsCurrent:     true,
			StartsAt:      time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
			EndsAt:        time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC),
		},
	}
}

func SeedRounds() []round.Round {
	return []round.Round{
		{
			ID:                "idn-r1",
			CompetitionID:     CompetitionIDLiga1Indonesia,
			SeasonID:          SeasonIDLiga1_2025,
			Sequence:          1,
			Status:            round.StatusScored,
			EarliestKickoffAt: time.Date(2025, 8, 9, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:                "idn-r2",
			CompetitionID:     CompetitionIDLiga1Indonesia,
			SeasonID:          SeasonIDLiga1_2025,
			Sequence:          2,
			Status:            round.StatusOpen,
			EarliestKickoffAt: time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC),
		},
	}
}

func SeedFixtures() []fixture.Fixture {
	home := fixture.OutcomeHome
	draw := fixture.OutcomeDraw
	return []fixture.Fixture{
		{
			ID: "idn-r1-f1", RoundID: "idn-r1",
			CompetitionID: CompetitionIDLiga1Indonesia, SeasonID: SeasonIDLiga1_2025,
			HomeTeamID: "idn-persija", AwayTeamID: "idn-persib",
			KickoffAt: time.Date(2025, 8, 9, 12, 0, 0, 0, time.UTC),
			Result:    &home, Status: "FT",
		},
		{
			ID: "idn-r1-f2", RoundID: "idn-r1",
			CompetitionID: CompetitionIDLiga1Indonesia, SeasonID: SeasonIDLiga1_2025,
			HomeTeamID: "idn-persebaya", AwayTeamID: "idn-baliutd",
			KickoffAt: time.Date(2025, 8, 9, 14, 30, 0, 0, time.UTC),
			Result:    &draw, Status: "FT",
		},
		{
			ID: "idn-r2-f1", RoundID: "idn-r2",
			CompetitionID: CompetitionIDLiga1Indonesia, SeasonID: SeasonIDLiga1_2025,
			HomeTeamID: "idn-persib", AwayTeamID: "idn-persebaya",
			KickoffAt: time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC),
			Status:    "SCHEDULED",
		},
		{
			ID: "idn-r2-f2", RoundID: "idn-r2",
			CompetitionID: CompetitionIDLiga1Indonesia, SeasonID: SeasonIDLiga1_2025,
			HomeTeamID: "idn-baliutd", AwayTeamID: "idn-persija",
			KickoffAt: time.Date(2026, 3, 16, 14, 30, 0, 0, time.UTC),
			Status:    "SCHEDULED",
		},
	}
}

func SeedUsers() []user.User {
	return []user.User{
		{ID: "user-andri", DisplayName: "Andri", CreatedAt: time.Date(2025, 7, 20, 0, 0, 0, 0, time.UTC)},
		{ID: "user-bela", DisplayName: "Bela", CreatedAt: time.Date(2025, 7, 22, 0, 0, 0, 0, time.UTC)},
		{ID: "user-cahya", DisplayName: "Cahya", CreatedAt: time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)},
	}
}
