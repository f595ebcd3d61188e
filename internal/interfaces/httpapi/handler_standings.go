package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/matchpick/predictor-league/internal/usecase"
)

type leagueStandingDTO struct {
	Rank            int    `json:"rank"`
	UserID          string `json:"user_id"`
	DisplayName     string `json:"display_name,omitempty"`
	TotalPoints     int    `json:"total_points"`
	PredictionCount int    `json:"prediction_count"`
	RetroCount      int    `json:"retro_count"`
}

type cupStandingDTO struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	CupPoints   int    `json:"cup_points"`
	RoundsInCup int    `json:"rounds_in_cup"`
}

// standingsCacheKey must share the prefix the usecases invalidate after a
// ledger mutation, "standings:<competitionID>".
func standingsCacheKey(competitionID, table string) string {
	return "standings:" + competitionID + ":" + table
}

func (h *Handler) GetLeagueStandings(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetLeagueStandings")
	defer span.End()

	competitionID := strings.TrimSpace(r.PathValue("competitionID"))
	if competitionID == "" {
		writeError(ctx, w, fmt.Errorf("%w: competition id is required", usecase.ErrInvalidInput))
		return
	}

	payload, err := h.cachedResponse(ctx, standingsCacheKey(competitionID, "league"), func(ctx context.Context) (any, error) {
		entries, err := h.standingsService.League(ctx, competitionID)
		if err != nil {
			return nil, err
		}
		items := make([]leagueStandingDTO, 0, len(entries))
		for _, entry := range entries {
			items = append(items, leagueStandingDTO{
				Rank:            entry.Rank,
				UserID:          entry.UserID,
				DisplayName:     entry.DisplayName,
				TotalPoints:     entry.TotalPoints,
				PredictionCount: entry.PredictionCount,
				RetroCount:      entry.RetroCount,
			})
		}
		return map[string]any{
			"competition_id": competitionID,
			"items":          items,
		}, nil
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, payload)
}

func (h *Handler) GetCupStandings(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetCupStandings")
	defer span.End()

	competitionID := strings.TrimSpace(r.PathValue("competitionID"))
	if competitionID == "" {
		writeError(ctx, w, fmt.Errorf("%w: competition id is required", usecase.ErrInvalidInput))
		return
	}

	payload, err := h.cachedResponse(ctx, standingsCacheKey(competitionID, "cup"), func(ctx context.Context) (any, error) {
		entries, err := h.standingsService.Cup(ctx, competitionID)
		if err != nil {
			return nil, err
		}
		items := make([]cupStandingDTO, 0, len(entries))
		for _, entry := range entries {
			items = append(items, cupStandingDTO{
				Rank:        entry.Rank,
				UserID:      entry.UserID,
				DisplayName: entry.DisplayName,
				CupPoints:   entry.CupPoints,
				RoundsInCup: entry.RoundsInCup,
			})
		}
		return map[string]any{
			"competition_id": competitionID,
			"items":          items,
		}, nil
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, payload)
}

func (h *Handler) cachedResponse(ctx context.Context, key string, loader func(context.Context) (any, error)) (any, error) {
	if h.responseCache == nil {
		return loader(ctx)
	}
	return h.responseCache.GetOrLoad(ctx, key, loader)
}
