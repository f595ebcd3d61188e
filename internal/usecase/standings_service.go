package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/matchpick/predictor-league/internal/domain/bet"
	"github.com/matchpick/predictor-league/internal/domain/round"
	"github.com/matchpick/predictor-league/internal/domain/standings"
	"github.com/matchpick/predictor-league/internal/domain/user"
)

// standingsCachePrefix keys boundary-layer response caches. Every ledger
// mutation deletes this prefix so reads never serve stale tables for long.
func standingsCachePrefix(competitionID string) string {
	return "standings:" + competitionID
}

// StandingsService folds the points ledger into ranked tables on demand.
// Nothing is persisted; the ledger is always the source of truth.
//
// Ordering is total points descending, then fewer predictions submitted,
// then user id ascending. Rank is dense: users tied on total share a rank.
type StandingsService struct {
	betRepo   bet.Repository
	userRepo  user.Repository
	roundRepo round.Repository
}

func NewStandingsService(betRepo bet.Repository, userRepo user.Repository, roundRepo round.Repository) *StandingsService {
	return &StandingsService{
		betRepo:   betRepo,
		userRepo:  userRepo,
		roundRepo: roundRepo,
	}
}

type userAccumulator struct {
	userID          string
	total           int
	cupTotal        int
	predictionCount int
	retroCount      int
	cupRounds       map[string]struct{}
	hasLeagueRow    bool
	hasCupRow       bool
}

func (s *StandingsService) League(ctx context.Context, competitionID string) ([]standings.LeagueEntry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StandingsService.League")
	defer span.End()

	accs, names, err := s.aggregate(ctx, competitionID, "")
	if err != nil {
		return nil, err
	}
	return leagueTable(accs, names), nil
}

// LeagueForSeason narrows the league table to bets placed in the rounds of
// one season. Winner determination reads this table so a competition's later
// seasons never inherit totals from earlier ones.
func (s *StandingsService) LeagueForSeason(ctx context.Context, competitionID, seasonID string) ([]standings.LeagueEntry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StandingsService.LeagueForSeason")
	defer span.End()

	seasonID = strings.TrimSpace(seasonID)
	if seasonID == "" {
		return nil, fmt.Errorf("%w: season id is required", ErrInvalidInput)
	}

	accs, names, err := s.aggregate(ctx, competitionID, seasonID)
	if err != nil {
		return nil, err
	}
	return leagueTable(accs, names), nil
}

func leagueTable(accs map[string]*userAccumulator, names map[string]string) []standings.LeagueEntry {
	rows := make([]*userAccumulator, 0, len(accs))
	for _, acc := range accs {
		if acc.hasLeagueRow {
			rows = append(rows, acc)
		}
	}
	sortAccumulators(rows, func(acc *userAccumulator) int { return acc.total })

	out := make([]standings.LeagueEntry, 0, len(rows))
	lastTotal := 0
	rank := 0
	for idx, acc := range rows {
		if idx == 0 || acc.total != lastTotal {
			rank++
			lastTotal = acc.total
		}
		out = append(out, standings.LeagueEntry{
			Rank:            rank,
			UserID:          acc.userID,
			DisplayName:     names[acc.userID],
			TotalPoints:     acc.total,
			PredictionCount: acc.predictionCount,
			RetroCount:      acc.retroCount,
		})
	}
	return out
}

func (s *StandingsService) Cup(ctx context.Context, competitionID string) ([]standings.CupEntry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StandingsService.Cup")
	defer span.End()

	accs, names, err := s.aggregate(ctx, competitionID, "")
	if err != nil {
		return nil, err
	}

	rows := make([]*userAccumulator, 0, len(accs))
	for _, acc := range accs {
		if acc.hasCupRow {
			rows = append(rows, acc)
		}
	}
	sortAccumulators(rows, func(acc *userAccumulator) int { return acc.cupTotal })

	out := make([]standings.CupEntry, 0, len(rows))
	lastTotal := 0
	rank := 0
	for idx, acc := range rows {
		if idx == 0 || acc.cupTotal != lastTotal {
			rank++
			lastTotal = acc.cupTotal
		}
		out = append(out, standings.CupEntry{
			Rank:        rank,
			UserID:      acc.userID,
			DisplayName: names[acc.userID],
			CupPoints:   acc.cupTotal,
			RoundsInCup: len(acc.cupRounds),
		})
	}
	return out, nil
}

func (s *StandingsService) aggregate(ctx context.Context, competitionID, seasonID string) (map[string]*userAccumulator, map[string]string, error) {
	competitionID = strings.TrimSpace(competitionID)
	if competitionID == "" {
		return nil, nil, fmt.Errorf("%w: competition id is required", ErrInvalidInput)
	}

	// A non-empty seasonID restricts the fold to that season's rounds.
	var seasonRounds map[string]struct{}
	if seasonID != "" {
		rounds, err := s.roundRepo.ListByCompetition(ctx, competitionID)
		if err != nil {
			return nil, nil, fmt.Errorf("list rounds for standings: %w", err)
		}
		seasonRounds = make(map[string]struct{}, len(rounds))
		for _, item := range rounds {
			if item.SeasonID == seasonID {
				seasonRounds[item.ID] = struct{}{}
			}
		}
	}

	bets, err := s.betRepo.ListByCompetition(ctx, competitionID)
	if err != nil {
		return nil, nil, fmt.Errorf("list bets for standings: %w", err)
	}

	accs := make(map[string]*userAccumulator)
	for _, item := range bets {
		if seasonRounds != nil {
			if _, ok := seasonRounds[item.RoundID]; !ok {
				continue
			}
		}
		acc, exists := accs[item.UserID]
		if !exists {
			acc = &userAccumulator{
				userID:    item.UserID,
				cupRounds: make(map[string]struct{}),
			}
			accs[item.UserID] = acc
		}

		if item.FixtureID != nil {
			acc.predictionCount++
		}
		if item.IsRetroactive {
			acc.retroCount++
		}
		if item.HasLeaguePoints() {
			acc.total += *item.PointsAwarded
			acc.hasLeagueRow = true
		}
		if item.CupPointsAwarded != nil {
			acc.cupTotal += *item.CupPointsAwarded
			acc.hasCupRow = true
			acc.cupRounds[item.RoundID] = struct{}{}
		}
	}

	userIDs := make([]string, 0, len(accs))
	for userID := range accs {
		userIDs = append(userIDs, userID)
	}
	names := make(map[string]string, len(userIDs))
	if len(userIDs) > 0 {
		users, err := s.userRepo.ListByIDs(ctx, userIDs)
		if err != nil {
			return nil, nil, fmt.Errorf("list users for standings: %w", err)
		}
		for _, item := range users {
			names[item.ID] = item.DisplayName
		}
	}
	return accs, names, nil
}

func sortAccumulators(rows []*userAccumulator, total func(*userAccumulator) int) {
	sort.SliceStable(rows, func(i, j int) bool {
		if total(rows[i]) != total(rows[j]) {
			return total(rows[i]) > total(rows[j])
		}
		if rows[i].predictionCount != rows[j].predictionCount {
			return rows[i].predictionCount < rows[j].predictionCount
		}
		return rows[i].userID < rows[j].userID
	})
}
