package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/matchpick/predictor-league/internal/usecase"
)

type roundJobRequest struct {
	RoundID string `json:"round_id" validate:"required"`
}

type cupDetectJobRequest struct {
	CompetitionID string `json:"competition_id" validate:"required"`
}

type cupRecomputeJobRequest struct {
	RoundID       string `json:"round_id"`
	CompetitionID string `json:"competition_id"`
}

type retroUserJobRequest struct {
	UserID        string `json:"user_id" validate:"required"`
	CompetitionID string `json:"competition_id" validate:"required"`
	FromSequence  *int   `json:"from_sequence,omitempty"`
	DryRun        bool   `json:"dry_run"`
}

type retroBulkJobRequest struct {
	CompetitionID string `json:"competition_id" validate:"required"`
	CreatedAfter  string `json:"created_after,omitempty"`
	MaxWorkers    int    `json:"max_workers,omitempty"`
	DryRun        bool   `json:"dry_run"`
}

type seasonCompleteJobRequest struct {
	SeasonID string `json:"season_id,omitempty"`
	Actor    string `json:"actor,omitempty"`
}

func (h *Handler) RunScoreRoundJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunScoreRoundJob")
	defer span.End()

	var req roundJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.scoringService.ScoreRound(ctx, req.RoundID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunRecalculateRoundJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunRecalculateRoundJob")
	defer span.End()

	var req roundJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.scoringService.RecalculateRound(ctx, req.RoundID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunCupDetectJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunCupDetectJob")
	defer span.End()

	var req cupDetectJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.cupService.DetectActivation(ctx, req.CompetitionID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

// RunCupRecomputeJob re-derives cup points for one round when round_id is
// given, or for every scored round since activation when only competition_id
// is given.
func (h *Handler) RunCupRecomputeJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunCupRecomputeJob")
	defer span.End()

	var req cupRecomputeJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	var (
		result usecase.CupRecomputeResult
		err    error
	)
	switch {
	case strings.TrimSpace(req.RoundID) != "":
		result, err = h.cupService.RecomputeRound(ctx, req.RoundID)
	case strings.TrimSpace(req.CompetitionID) != "":
		result, err = h.cupService.RecomputeSinceActivation(ctx, req.CompetitionID)
	default:
		writeError(ctx, w, fmt.Errorf("%w: round_id or competition_id is required", usecase.ErrInvalidInput))
		return
	}
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if len(result.Errors) > 0 {
		status = http.StatusMultiStatus
	}
	writeSuccess(ctx, w, status, result)
}

func (h *Handler) RunRetroUserJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunRetroUserJob")
	defer span.End()

	var req retroUserJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.retroService.AllocateForUser(ctx, usecase.AllocateUserInput{
		UserID:        req.UserID,
		CompetitionID: req.CompetitionID,
		FromSequence:  req.FromSequence,
		DryRun:        req.DryRun,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunRetroBulkJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunRetroBulkJob")
	defer span.End()

	var req retroBulkJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	var createdAfter time.Time
	if raw := strings.TrimSpace(req.CreatedAfter); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(ctx, w, fmt.Errorf("%w: created_after must be RFC3339: %v", usecase.ErrInvalidInput, err))
			return
		}
		createdAfter = parsed
	}

	result, err := h.retroService.AllocateBulk(ctx, usecase.AllocateBulkInput{
		CompetitionID: req.CompetitionID,
		CreatedAfter:  createdAfter,
		MaxWorkers:    req.MaxWorkers,
		DryRun:        req.DryRun,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if result.FailedCount > 0 {
		status = http.StatusMultiStatus
	}
	writeSuccess(ctx, w, status, result)
}

// RunSeasonCompleteJob sweeps every due season, or force-completes one season
// when season_id is given.
func (h *Handler) RunSeasonCompleteJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunSeasonCompleteJob")
	defer span.End()

	var req seasonCompleteJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	if seasonID := strings.TrimSpace(req.SeasonID); seasonID != "" {
		result, err := h.seasonService.ForceComplete(ctx, seasonID, strings.TrimSpace(req.Actor))
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		writeSuccess(ctx, w, http.StatusOK, result)
		return
	}

	result, err := h.seasonService.CompleteDueSeasons(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if result.FailedCount > 0 {
		status = http.StatusMultiStatus
	}
	writeSuccess(ctx, w, status, result)
}

func (h *Handler) RunSeasonWinnersJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunSeasonWinnersJob")
	defer span.End()

	result, err := h.seasonService.DetermineWinners(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if result.FailedCount > 0 {
		status = http.StatusMultiStatus
	}
	writeSuccess(ctx, w, status, result)
}
