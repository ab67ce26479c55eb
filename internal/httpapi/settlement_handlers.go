package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"refpay.org/internal/period"
	"refpay.org/internal/settlement"
)

type summaryResponse struct {
	Period period.Month         `json:"period"`
	Items  []settlement.Summary `json:"items"`
}

// handleRefereeResource serves /v1/referees/{id}/settlements/{month}.
func (a *API) handleRefereeResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/referees/")
	parts := strings.Split(path, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] != "settlements" || parts[2] == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	month, err := period.ParseMonth(parts[2])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "month must look like 2026-08")
		return
	}

	report, err := a.calculator.Calculate(r.Context(), parts[0], month)
	if err != nil {
		handleSettlementError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleMonthlySummary serves /v1/settlements/{month}.
func (a *API) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.Path, "/v1/settlements/")
	if raw == "" || strings.Contains(raw, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	month, err := period.ParseMonth(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "month must look like 2026-08")
		return
	}

	items, err := a.calculator.MonthlySummary(r.Context(), month)
	if err != nil {
		handleSettlementError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Period: month, Items: items})
}

func handleSettlementError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, settlement.ErrRefereeNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
