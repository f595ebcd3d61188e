package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/matchpick/predictor-league/internal/domain/bet"
	"github.com/matchpick/predictor-league/internal/usecase"
)

type submitBetsRequest struct {
	Predictions []usecase.PredictionInput `json:"predictions" validate:"required,min=1,dive"`
}

type betDTO struct {
	ID               string `json:"id"`
	CompetitionID    string `json:"competition_id"`
	RoundID          string `json:"round_id"`
	FixtureID        string `json:"fixture_id,omitempty"`
	Prediction       string `json:"prediction,omitempty"`
	PointsAwarded    *int   `json:"points_awarded,omitempty"`
	CupPointsAwarded *int   `json:"cup_points_awarded,omitempty"`
	IsRetroactive    bool   `json:"is_retroactive"`
	SubmittedAt      string `json:"submitted_at"`
}

func (h *Handler) SubmitBets(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SubmitBets")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: missing principal", usecase.ErrUnauthenticated))
		return
	}

	var req submitBetsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	receipt, err := h.betService.SubmitPredictions(ctx, principal.UserID, req.Predictions)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, receipt)
}

func (h *Handler) ListMyBets(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMyBets")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: missing principal", usecase.ErrUnauthenticated))
		return
	}

	competitionID := strings.TrimSpace(r.URL.Query().Get("competition_id"))
	bets, err := h.betService.ListMine(ctx, principal.UserID, competitionID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items := make([]betDTO, 0, len(bets))
	for _, item := range bets {
		items = append(items, betToDTO(ctx, item))
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]any{
		"competition_id": competitionID,
		"items":          items,
	})
}

func betToDTO(ctx context.Context, v bet.Bet) betDTO {
	ctx, span := startSpan(ctx, "httpapi.betToDTO")
	defer span.End()
	_ = ctx

	dto := betDTO{
		ID:               v.ID,
		CompetitionID:    v.CompetitionID,
		RoundID:          v.RoundID,
		PointsAwarded:    v.PointsAwarded,
		CupPointsAwarded: v.CupPointsAwarded,
		IsRetroactive:    v.IsRetroactive,
		SubmittedAt:      v.SubmittedAt.UTC().Format(time.RFC3339),
	}
	if v.FixtureID != nil {
		dto.FixtureID = *v.FixtureID
	}
	if v.Prediction != nil {
		dto.Prediction = string(*v.Prediction)
	}
	return dto
}
