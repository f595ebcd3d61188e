package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if !swaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerPublicDomainRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/competitions/{competitionID}/standings", handler.GetLeagueStandings)
	mux.HandleFunc("GET /v1/competitions/{competitionID}/standings/cup", handler.GetCupStandings)
}

func registerAuthorizedRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("POST /v1/bets", RequireAuth(verifier, http.HandlerFunc(handler.SubmitBets)))
	mux.Handle("GET /v1/bets/me", RequireAuth(verifier, http.HandlerFunc(handler.ListMyBets)))
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/score-round", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunScoreRoundJob)))
	mux.Handle("POST /v1/internal/jobs/recalculate-round", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunRecalculateRoundJob)))
	mux.Handle("POST /v1/internal/jobs/cup-detect", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunCupDetectJob)))
	mux.Handle("POST /v1/internal/jobs/cup-recompute", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunCupRecomputeJob)))
	mux.Handle("POST /v1/internal/jobs/retro-user", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunRetroUserJob)))
	mux.Handle("POST /v1/internal/jobs/retro-bulk", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunRetroBulkJob)))
	mux.Handle("POST /v1/internal/jobs/season-complete", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunSeasonCompleteJob)))
	mux.Handle("POST /v1/internal/jobs/season-winners", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunSeasonWinnersJob)))
}
