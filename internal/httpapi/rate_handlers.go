package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"refpay.org/internal/assignment"
	"refpay.org/internal/auth"
	"refpay.org/internal/catalog"
	"refpay.org/internal/rates"
)

type createRateRequest struct {
	TournamentID string `json:"tournament_id"`
	Rank         string `json:"rank"`
	Role         string `json:"role"`
	Supplement   int64  `json:"supplement"`
	Description  string `json:"description"`
}

type updateRateRequest struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type rateListResponse struct {
	Items []rates.Entry `json:"items"`
}

type resolveResponse struct {
	TournamentID string `json:"tournament_id"`
	Rank         string `json:"rank"`
	Role         string `json:"role"`
	Amount       int64  `json:"amount"`
}

func (a *API) handleRatesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createRate(w, r)
	case http.MethodGet:
		a.listRates(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleRateResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/rates/")

	if path == "resolve" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.resolveRate(w, r)
		return
	}

	for _, action := range []string{"deactivate", "activate"} {
		if id, ok := strings.CutSuffix(path, "/"+action); ok && id != "" && !strings.Contains(id, "/") {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, r, http.MethodPost)
				return
			}
			a.setRateActive(w, r, id, action == "activate")
			return
		}
	}

	if path != "" && !strings.Contains(path, "/") {
		switch r.Method {
		case http.MethodGet:
			a.getRate(w, r, path)
		case http.MethodPut:
			a.updateRate(w, r, path)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
		}
		return
	}

	writeError(w, r, http.StatusNotFound, "resource not found")
}

func (a *API) createRate(w http.ResponseWriter, r *http.Request) {
	if !a.requireRole(w, r, auth.RoleOperator) {
		return
	}

	var req createRateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rank, err := catalog.ParseRank(req.Rank)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "unknown rank: "+req.Rank)
		return
	}
	role, err := assignment.ParseRole(req.Role)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "unknown role: "+req.Role)
		return
	}

	entry, err := a.rates.Create(r.Context(), strings.TrimSpace(req.TournamentID), rank, role, req.Supplement, req.Description)
	if err != nil {
		handleRateError(w, r, err)
		return
	}

	a.auditEvent(r, "rate.create", map[string]any{
		"rate_id":       entry.ID,
		"tournament_id": entry.TournamentID,
		"rank":          string(entry.Rank),
		"role":          string(entry.Role),
		"amount":        strconv.FormatInt(entry.Amount, 10),
	})

	w.Header().Set("Location", "/v1/rates/"+entry.ID)
	writeJSON(w, http.StatusCreated, entry)
}

func (a *API) listRates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := rates.Filter{
		TournamentID: strings.TrimSpace(q.Get("tournament")),
		Search:       strings.TrimSpace(q.Get("search")),
		ActiveOnly:   q.Get("active") == "true",
	}
	if raw := q.Get("rank"); raw != "" {
		rank, err := catalog.ParseRank(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "unknown rank: "+raw)
			return
		}
		f.Rank = rank
	}
	if raw := q.Get("role"); raw != "" {
		role, err := assignment.ParseRole(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "unknown role: "+raw)
			return
		}
		f.Role = role
	}

	items, err := a.rates.List(r.Context(), f)
	if err != nil {
		handleRateError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rateListResponse{Items: items})
}

func (a *API) resolveRate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tournamentID := strings.TrimSpace(q.Get("tournament"))
	if tournamentID == "" {
		writeError(w, r, http.StatusBadRequest, "tournament query parameter is required")
		return
	}
	rank, err := catalog.ParseRank(q.Get("rank"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "unknown rank: "+q.Get("rank"))
		return
	}
	role, err := assignment.ParseRole(q.Get("role"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "unknown role: "+q.Get("role"))
		return
	}

	amount, err := a.rates.Resolve(r.Context(), tournamentID, rank, role)
	if err != nil {
		handleRateError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resolveResponse{
		TournamentID: tournamentID,
		Rank:         string(rank),
		Role:         string(role),
		Amount:       amount,
	})
}

func (a *API) getRate(w http.ResponseWriter, r *http.Request, id string) {
	entry, err := a.rates.FindByID(r.Context(), id)
	if err != nil {
		handleRateError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (a *API) updateRate(w http.ResponseWriter, r *http.Request, id string) {
	if !a.requireRole(w, r, auth.RoleOperator) {
		return
	}

	var req updateRateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := a.rates.Update(r.Context(), id, req.Amount, req.Description)
	if err != nil {
		handleRateError(w, r, err)
		return
	}

	a.auditEvent(r, "rate.update", map[string]any{
		"rate_id": entry.ID,
		"amount":  strconv.FormatInt(entry.Amount, 10),
	})

	writeJSON(w, http.StatusOK, entry)
}

func (a *API) setRateActive(w http.ResponseWriter, r *http.Request, id string, active bool) {
	if !a.requireRole(w, r, auth.RoleOperator) {
		return
	}

	var (
		entry rates.Entry
		err   error
		event = "rate.deactivate"
	)
	if active {
		entry, err = a.rates.Activate(r.Context(), id)
		event = "rate.activate"
	} else {
		entry, err = a.rates.Deactivate(r.Context(), id)
	}
	if err != nil {
		handleRateError(w, r, err)
		return
	}

	a.auditEvent(r, event, map[string]any{"rate_id": entry.ID})
	writeJSON(w, http.StatusOK, entry)
}

func handleRateError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, rates.ErrValidation):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, rates.ErrNotFound), errors.Is(err, rates.ErrNotResolved):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, rates.ErrDuplicateKey):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
