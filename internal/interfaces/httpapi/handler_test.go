package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/matchpick/predictor-league/internal/domain/bet"
	"github.com/matchpick/predictor-league/internal/domain/fixture"
	"github.com/matchpick/predictor-league/internal/domain/round"
	"github.com/matchpick/predictor-league/internal/domain/season"
	"github.com/matchpick/predictor-league/internal/domain/user"
	"github.com/matchpick/predictor-league/internal/infrastructure/repository/memory"
	"github.com/matchpick/predictor-league/internal/platform/cache"
	"github.com/matchpick/predictor-league/internal/platform/id"
	"github.com/matchpick/predictor-league/internal/platform/logging"
	"github.com/matchpick/predictor-league/internal/usecase"
)

const testJobToken = "test-job-token"

type stubVerifier struct {
	principal user.Principal
	err       error
}

func (v stubVerifier) VerifyAccessToken(_ context.Context, _ string) (user.Principal, error) {
	if v.err != nil {
		return user.Principal{}, v.err
	}
	return v.principal, nil
}

// newTestRouter wires the full stack over in-memory repositories. The open
// round's deadline sits in the future relative to the wall clock so
// submissions are admitted regardless of when the test runs.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	now := time.Now().UTC()
	home := fixture.OutcomeHome

	seasonRepo := memory.NewSeasonRepository([]season.Season{
		{
			ID:            "s1",
			CompetitionID: "c1",
			Label:         "Test Season",
			IsCurrent:     true,
			StartsAt:      now.Add(-30 * 24 * time.Hour),
			EndsAt:        now.Add(60 * 24 * time.Hour),
		},
	})
	roundRepo := memory.NewRoundRepository([]round.Round{
		{
			ID:                "r-played",
			CompetitionID:     "c1",
			SeasonID:          "s1",
			Sequence:          1,
			Status:            round.StatusOpen,
			EarliestKickoffAt: now.Add(-48 * time.Hour),
		},
		{
			ID:                "r-open",
			CompetitionID:     "c1",
			SeasonID:          "s1",
			Sequence:          2,
			Status:            round.StatusOpen,
			EarliestKickoffAt: now.Add(24 * time.Hour),
		},
	})
	fixtureRepo := memory.NewFixtureRepository([]fixture.Fixture{
		{
			ID: "f-played", RoundID: "r-played",
			CompetitionID: "c1", SeasonID: "s1",
			HomeTeamID: "t1", AwayTeamID: "t2",
			KickoffAt: now.Add(-48 * time.Hour),
			Result:    &home, Status: "FT",
		},
		{
			ID: "f-open", RoundID: "r-open",
			CompetitionID: "c1", SeasonID: "s1",
			HomeTeamID: "t2", AwayTeamID: "t1",
			KickoffAt: now.Add(24 * time.Hour),
			Status:    "SCHEDULED",
		},
	})

	playedFixture := "f-played"
	betRepo := memory.NewBetRepository([]bet.Bet{
		{
			ID:            "b1",
			UserID:        "u1",
			CompetitionID: "c1",
			RoundID:       "r-played",
			FixtureID:     &playedFixture,
			Prediction:    &home,
			SubmittedAt:   now.Add(-72 * time.Hour),
		},
	})
	userRepo := memory.NewUserRepository([]user.User{
		{ID: "u1", DisplayName: "Test User", CreatedAt: now.Add(-90 * 24 * time.Hour)},
	}, betRepo)
	winnerRepo := memory.NewWinnerRepository()

	logger := logging.NewNop()
	idGen := id.NewRandomGenerator()
	responseCache := cache.NewStore(time.Minute)

	betService := usecase.NewBetService(roundRepo, fixtureRepo, betRepo, idGen)
	scoringService := usecase.NewScoringService(roundRepo, seasonRepo, fixtureRepo, betRepo, responseCache, nil, logger)
	cupService := usecase.NewCupService(seasonRepo, roundRepo, fixtureRepo, betRepo, responseCache, nil, logger, usecase.CupConfig{})
	retroService := usecase.NewRetroService(roundRepo, betRepo, userRepo, responseCache, nil, logger, idGen)
	standingsService := usecase.NewStandingsService(betRepo, userRepo, roundRepo)
	seasonService := usecase.NewSeasonService(seasonRepo, winnerRepo, standingsService, nil, logger, idGen)

	handler := NewHandler(betService, scoringService, cupService, retroService, standingsService, seasonService, responseCache, logger)
	verifier := stubVerifier{principal: user.Principal{UserID: "u1", DisplayName: "Test User"}}

	return NewRouter(handler, verifier, logger, false, nil, testJobToken)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	return body
}

func envelopeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	body := decodeEnvelope(t, rec)
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object in response, got %v", body)
	}
	return data
}

func TestSubmitBets_AcceptsOpenRound(t *testing.T) {
	router := newTestRouter(t)

	payload := `{"predictions":[{"fixture_id":"f-open","prediction":"away"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/bets", strings.NewReader(payload))
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	data := envelopeData(t, rec)
	if got, _ := data["round_id"].(string); got != "r-open" {
		t.Fatalf("expected round_id=r-open, got %v", data["round_id"])
	}
	if got, _ := data["accepted"].(float64); got != 1 {
		t.Fatalf("expected accepted=1, got %v", data["accepted"])
	}
}

func TestSubmitBets_MissingToken(t *testing.T) {
	router := newTestRouter(t)

	payload := `{"predictions":[{"fixture_id":"f-open","prediction":"home"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/bets", strings.NewReader(payload))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestSubmitBets_DeadlinePassed(t *testing.T) {
	router := newTestRouter(t)

	payload := `{"predictions":[{"fixture_id":"f-played","prediction":"home"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/bets", strings.NewReader(payload))
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d body=%s", rec.Code, rec.Body.String())
	}
	body := decodeEnvelope(t, rec)
	errorObj, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error object in response")
	}
	if got, _ := errorObj["status"].(string); got != "FAILED_PRECONDITION" {
		t.Fatalf("expected FAILED_PRECONDITION, got %v", errorObj["status"])
	}
}

func TestInternalJobs_RequireToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/score-round", strings.NewReader(`{"round_id":"r-played"}`))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestScoreRoundJob_ScoresFinishedFixtures(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/score-round", strings.NewReader(`{"round_id":"r-played"}`))
	req.Header.Set("X-Internal-Job-Token", testJobToken)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	data := envelopeData(t, rec)
	if got, _ := data["bets_scored"].(float64); got != 1 {
		t.Fatalf("expected bets_scored=1, got %v", data["bets_scored"])
	}
	if got, _ := data["points_awarded"].(float64); got != 1 {
		t.Fatalf("expected points_awarded=1, got %v", data["points_awarded"])
	}
}

func TestLeagueStandings_ReflectScoredRound(t *testing.T) {
	router := newTestRouter(t)

	score := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/score-round", strings.NewReader(`{"round_id":"r-played"}`))
	score.Header.Set("X-Internal-Job-Token", testJobToken)
	scoreRec := httptest.NewRecorder()
	router.ServeHTTP(scoreRec, score)
	if scoreRec.Code != http.StatusOK {
		t.Fatalf("score round setup failed: status=%d body=%s", scoreRec.Code, scoreRec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/competitions/c1/standings", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	data := envelopeData(t, rec)
	items, ok := data["items"].([]any)
	if !ok || len(items) == 0 {
		t.Fatalf("expected at least one standings entry, got %v", data["items"])
	}
	first, _ := items[0].(map[string]any)
	if got, _ := first["user_id"].(string); got != "u1" {
		t.Fatalf("expected user_id=u1 at rank 1, got %v", first["user_id"])
	}
	if got, _ := first["total_points"].(float64); got != 1 {
		t.Fatalf("expected total_points=1, got %v", first["total_points"])
	}
}

func TestListMyBets_RequiresCompetitionID(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/bets/me", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestListMyBets_ReturnsLedgerRows(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/bets/me?competition_id=c1", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	data := envelopeData(t, rec)
	items, ok := data["items"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("expected one bet, got %v", data["items"])
	}
	first, _ := items[0].(map[string]any)
	if got, _ := first["fixture_id"].(string); got != "f-played" {
		t.Fatalf("expected fixture_id=f-played, got %v", first["fixture_id"])
	}
}
