package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	"github.com/matchpick/predictor-league/internal/platform/cache"
	"github.com/matchpick/predictor-league/internal/platform/logging"
	"github.com/matchpick/predictor-league/internal/usecase"
)

type Handler struct {
	betService       *usecase.BetService
	scoringService   *usecase.ScoringService
	cupService       *usecase.CupService
	retroService     *usecase.RetroService
	standingsService *usecase.StandingsService
	seasonService    *usecase.SeasonService
	responseCache    *cache.Store
	logger           *logging.Logger
	validator        *validator.Validate
}

func NewHandler(
	betService *usecase.BetService,
	scoringService *usecase.ScoringService,
	cupService *usecase.CupService,
	retroService *usecase.RetroService,
	standingsService *usecase.StandingsService,
	seasonService *usecase.SeasonService,
	responseCache *cache.Store,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		betService:       betService,
		scoringService:   scoringService,
		cupService:       cupService,
		retroService:     retroService,
		standingsService: standingsService,
		seasonService:    seasonService,
		responseCache:    responseCache,
		logger:           logger,
		validator:        validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

// decodeJSON fills dst from the request body. An empty body is tolerated so
// job endpoints can be curl'd without a payload; unknown fields are rejected.
func decodeJSON(r *http.Request, dst any) error {
	decoder := jsoniter.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}
