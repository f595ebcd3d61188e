package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/matchpick/predictor-league/internal/domain/audit"
	"github.com/matchpick/predictor-league/internal/domain/bet"
	"github.com/matchpick/predictor-league/internal/domain/fixture"
	"github.com/matchpick/predictor-league/internal/domain/round"
	"github.com/matchpick/predictor-league/internal/domain/season"
	"github.com/matchpick/predictor-league/internal/domain/user"
	"github.com/matchpick/predictor-league/internal/domain/winner"
	"github.com/matchpick/predictor-league/internal/platform/logging"
)

type stubSeasonRepo struct {
	mu      sync.Mutex
	seasons map[string]season.Season
}

func newStubSeasonRepo(seasons ...season.Season) *stubSeasonRepo {
	out := &stubSeasonRepo{seasons: make(map[string]season.Season, len(seasons))}
	for _, item := range seasons {
		out.seasons[item.ID] = item
	}
	return out
}

func (s *stubSeasonRepo) GetByID(_ context.Context, seasonID string) (season.Season, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.seasons[seasonID]
	return item, ok, nil
}

func (s *stubSeasonRepo) GetCurrentByCompetition(_ context.Context, competitionID string) (season.Season, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.seasons {
		if item.CompetitionID == competitionID && item.IsCurrent {
			return item, true, nil
		}
	}
	return season.Season{}, false, nil
}

func (s *stubSeasonRepo) ListDueForCompletion(_ context.Context, now time.Time) ([]season.Season, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]season.Season, 0)
	for _, item := range s.seasons {
		if item.CompletedAt == nil && !item.EndsAt.IsZero() && item.EndsAt.Before(now) {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubSeasonRepo) ListAwaitingWinner(_ context.Context) ([]season.Season, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]season.Season, 0)
	for _, item := range s.seasons {
		if item.CompletedAt != nil && item.WinnerAt == nil {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubSeasonRepo) MarkCupActivated(_ context.Context, seasonID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.seasons[seasonID]
	if !ok || item.CupActivatedAt != nil {
		return false, nil
	}
	item.CupActivatedAt = &at
	s.seasons[seasonID] = item
	return true, nil
}

func (s *stubSeasonRepo) MarkCompleted(_ context.Context, seasonID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.seasons[seasonID]
	if !ok || item.CompletedAt != nil {
		return false, nil
	}
	item.CompletedAt = &at
	s.seasons[seasonID] = item
	return true, nil
}

func (s *stubSeasonRepo) MarkWinnerDetermined(_ context.Context, seasonID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.seasons[seasonID]
	if !ok || item.WinnerAt != nil {
		return false, nil
	}
	item.WinnerAt = &at
	s.seasons[seasonID] = item
	return true, nil
}

type stubRoundRepo struct {
	mu     sync.Mutex
	rounds map[string]round.Round
}

func newStubRoundRepo(rounds ...round.Round) *stubRoundRepo {
	out := &stubRoundRepo{rounds: make(map[string]round.Round, len(rounds))}
	for _, item := range rounds {
		out.rounds[item.ID] = item
	}
	return out
}

func (s *stubRoundRepo) GetByID(_ context.Context, roundID string) (round.Round, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.rounds[roundID]
	return item, ok, nil
}

func (s *stubRoundRepo) ListByCompetition(_ context.Context, competitionID string) ([]round.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]round.Round, 0)
	for _, item := range s.rounds {
		if item.CompetitionID == competitionID {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (s *stubRoundRepo) ListScoredByCompetition(ctx context.Context, competitionID string) ([]round.Round, error) {
	all, err := s.ListByCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	out := make([]round.Round, 0, len(all))
	for _, item := range all {
		if item.IsScored() {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *stubRoundRepo) UpdateStatus(_ context.Context, roundID, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.rounds[roundID]
	if !ok || round.NormalizeStatus(item.Status) != round.NormalizeStatus(from) {
		return false, nil
	}
	if !round.CanTransition(from, to) {
		return false, fmt.Errorf("illegal transition %s -> %s", from, to)
	}
	item.Status = round.NormalizeStatus(to)
	s.rounds[roundID] = item
	return true, nil
}

func (s *stubRoundRepo) MarkCupActivated(_ context.Context, roundID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.rounds[roundID]
	if !ok || item.CupActivatedAt != nil {
		return false, nil
	}
	item.CupActivatedAt = &at
	s.rounds[roundID] = item
	return true, nil
}

type stubFixtureRepo struct {
	fixtures []fixture.Fixture
}

func (s *stubFixtureRepo) ListByIDs(_ context.Context, fixtureIDs []string) ([]fixture.Fixture, error) {
	wanted := make(map[string]struct{}, len(fixtureIDs))
	for _, fixtureID := range fixtureIDs {
		wanted[fixtureID] = struct{}{}
	}
	out := make([]fixture.Fixture, 0, len(fixtureIDs))
	for _, item := range s.fixtures {
		if _, ok := wanted[item.ID]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *stubFixtureRepo) ListByRound(_ context.Context, roundID string) ([]fixture.Fixture, error) {
	out := make([]fixture.Fixture, 0)
	for _, item := range s.fixtures {
		if item.RoundID == roundID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *stubFixtureRepo) ListBySeason(_ context.Context, seasonID string) ([]fixture.Fixture, error) {
	out := make([]fixture.Fixture, 0)
	for _, item := range s.fixtures {
		if item.SeasonID == seasonID {
			out = append(out, item)
		}
	}
	return out, nil
}

type stubBetRepo struct {
	mu   sync.Mutex
	bets []bet.Bet
}

func (s *stubBetRepo) UpsertPredictions(_ context.Context, bets []bet.Bet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, incoming := range bets {
		replaced := false
		for idx, existing := range s.bets {
			if existing.UserID == incoming.UserID &&
				existing.FixtureID != nil && incoming.FixtureID != nil &&
				*existing.FixtureID == *incoming.FixtureID {
				incoming.ID = existing.ID
				s.bets[idx] = incoming
				replaced = true
				break
			}
		}
		if !replaced {
			s.bets = append(s.bets, incoming)
		}
	}
	return nil
}

func (s *stubBetRepo) ListByRound(_ context.Context, roundID string) ([]bet.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bet.Bet, 0)
	for _, item := range s.bets {
		if item.RoundID == roundID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *stubBetRepo) ListByCompetition(_ context.Context, competitionID string) ([]bet.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bet.Bet, 0)
	for _, item := range s.bets {
		if item.CompetitionID == competitionID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *stubBetRepo) ListByUserAndCompetition(_ context.Context, userID, competitionID string) ([]bet.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bet.Bet, 0)
	for _, item := range s.bets {
		if item.UserID == userID && item.CompetitionID == competitionID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *stubBetRepo) ApplyRoundPoints(_ context.Context, roundID string, updates []bet.PointsUpdate, clearFirst bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if clearFirst {
		for idx, item := range s.bets {
			if item.RoundID == roundID && !item.IsRetroactive {
				s.bets[idx].PointsAwarded = nil
				s.bets[idx].CupPointsAwarded = nil
			}
		}
	}
	for _, update := range updates {
		for idx, item := range s.bets {
			if item.ID != update.BetID {
				continue
			}
			points := update.Points
			s.bets[idx].PointsAwarded = &points
			if update.CupPoints != nil {
				cupPoints := *update.CupPoints
				s.bets[idx].CupPointsAwarded = &cupPoints
			}
		}
	}
	return nil
}

func (s *stubBetRepo) ClearCupPoints(_ context.Context, roundIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := make(map[string]struct{}, len(roundIDs))
	for _, roundID := range roundIDs {
		wanted[roundID] = struct{}{}
	}
	for idx, item := range s.bets {
		if _, ok := wanted[item.RoundID]; ok {
			s.bets[idx].CupPointsAwarded = nil
		}
	}
	return nil
}

func (s *stubBetRepo) ApplyCupPoints(_ context.Context, roundID string, updates []bet.PointsUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, update := range updates {
		for idx, item := range s.bets {
			if item.ID != update.BetID || item.RoundID != roundID {
				continue
			}
			cupPoints := update.Points
			s.bets[idx].CupPointsAwarded = &cupPoints
		}
	}
	return nil
}

func (s *stubBetRepo) InsertRetroactiveAward(_ context.Context, award bet.Bet) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.bets {
		if item.UserID == award.UserID && item.RoundID == award.RoundID {
			return false, nil
		}
	}
	s.bets = append(s.bets, award)
	return true, nil
}

func (s *stubBetRepo) snapshot() []bet.Bet {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bet.Bet, len(s.bets))
	copy(out, s.bets)
	return out
}

type stubUserRepo struct {
	users []user.User
	// memberships maps competition id to the users holding ledger rows
	// there. Nil means every user belongs everywhere.
	memberships map[string][]string
}

func (s *stubUserRepo) GetByID(_ context.Context, userID string) (user.User, bool, error) {
	for _, item := range s.users {
		if item.ID == userID {
			return item, true, nil
		}
	}
	return user.User{}, false, nil
}

func (s *stubUserRepo) ListByIDs(_ context.Context, userIDs []string) ([]user.User, error) {
	wanted := make(map[string]struct{}, len(userIDs))
	for _, userID := range userIDs {
		wanted[userID] = struct{}{}
	}
	out := make([]user.User, 0, len(userIDs))
	for _, item := range s.users {
		if _, ok := wanted[item.ID]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *stubUserRepo) ListByCompetition(_ context.Context, competitionID string) ([]user.User, error) {
	if s.memberships == nil {
		out := make([]user.User, len(s.users))
		copy(out, s.users)
		return out, nil
	}
	wanted := make(map[string]struct{})
	for _, userID := range s.memberships[competitionID] {
		wanted[userID] = struct{}{}
	}
	out := make([]user.User, 0, len(s.users))
	for _, item := range s.users {
		if _, ok := wanted[item.ID]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *stubUserRepo) ListCreatedAfter(_ context.Context, createdAfter time.Time) ([]user.User, error) {
	out := make([]user.User, 0)
	for _, item := range s.users {
		if item.CreatedAt.After(createdAfter) {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type stubWinnerRepo struct {
	mu          sync.Mutex
	winners     []winner.SeasonWinner
	failSeasons map[string]error
}

func (s *stubWinnerRepo) ListBySeason(_ context.Context, seasonID string) ([]winner.SeasonWinner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]winner.SeasonWinner, 0)
	for _, item := range s.winners {
		if item.SeasonID == seasonID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *stubWinnerRepo) ExistsForSeason(_ context.Context, seasonID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.winners {
		if item.SeasonID == seasonID {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubWinnerRepo) InsertAll(_ context.Context, winners []winner.SeasonWinner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(winners) > 0 {
		if err := s.failSeasons[winners[0].SeasonID]; err != nil {
			return err
		}
	}
	s.winners = append(s.winners, winners...)
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *recordingSink) Emit(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, event := range s.events {
		out = append(out, event.Action)
	}
	return out
}

type seqIDGen struct {
	mu   sync.Mutex
	next int
}

func (g *seqIDGen) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("id-%04d", g.next), nil
}

type recordingInvalidator struct {
	mu       sync.Mutex
	prefixes []string
}

func (s *recordingInvalidator) DeletePrefix(_ context.Context, prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefixes = append(s.prefixes, prefix)
}

func testLogger() *logging.Logger {
	return logging.NewNop()
}

func ptrOutcome(o fixture.Outcome) *fixture.Outcome { return &o }

func ptrInt(v int) *int { return &v }

func ptrTime(t time.Time) *time.Time { return &t }
