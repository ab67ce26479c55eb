package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"refpay.org/internal/assignment"
	"refpay.org/internal/auth"
	"refpay.org/internal/obs"
	"refpay.org/internal/period"
	"refpay.org/internal/stream"
)

type bulkAssignItem struct {
	RefereeID string `json:"referee_id"`
	Role      string `json:"role"`
}

type bulkAssignRequest struct {
	Items []bulkAssignItem `json:"items"`
}

type respondRequest struct {
	Comment string `json:"comment"`
}

type assignmentListResponse struct {
	Items []assignment.Assignment `json:"items"`
}

type cancelAllResponse struct {
	Canceled int `json:"canceled"`
}

func (a *API) handleMatchResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/matches/")

	if id, ok := strings.CutSuffix(path, "/assignments/cancel"); ok && id != "" && !strings.Contains(id, "/") {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.cancelAll(w, r, id)
		return
	}

	if id, ok := strings.CutSuffix(path, "/assignments"); ok && id != "" && !strings.Contains(id, "/") {
		switch r.Method {
		case http.MethodPost:
			a.bulkAssign(w, r, id)
		case http.MethodGet:
			a.listMatchAssignments(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
		return
	}

	writeError(w, r, http.StatusNotFound, "resource not found")
}

func (a *API) bulkAssign(w http.ResponseWriter, r *http.Request, matchID string) {
	if !a.requireRole(w, r, auth.RoleOperator) {
		return
	}

	var req bulkAssignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Items) == 0 {
		writeError(w, r, http.StatusBadRequest, "items are required")
		return
	}

	refereeIDs := make([]string, 0, len(req.Items))
	roles := make([]assignment.Role, 0, len(req.Items))
	for _, item := range req.Items {
		role, err := assignment.ParseRole(item.Role)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "unknown role: "+item.Role)
			return
		}
		refereeIDs = append(refereeIDs, strings.TrimSpace(item.RefereeID))
		roles = append(roles, role)
	}

	created, err := a.assignments.BulkAssign(r.Context(), matchID, refereeIDs, roles)
	if err != nil {
		handleAssignmentError(w, r, err)
		return
	}

	for _, item := range created {
		a.publish(item)
	}
	a.auditEvent(r, "assignment.bulk_assign", map[string]any{
		"match_id": matchID,
		"count":    strconv.Itoa(len(created)),
	})

	writeJSON(w, http.StatusCreated, assignmentListResponse{Items: created})
}

func (a *API) listMatchAssignments(w http.ResponseWriter, r *http.Request, matchID string) {
	items, err := a.assignments.FindByMatch(r.Context(), matchID)
	if err != nil {
		handleAssignmentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assignmentListResponse{Items: items})
}

func (a *API) cancelAll(w http.ResponseWriter, r *http.Request, matchID string) {
	if !a.requireRole(w, r, auth.RoleOperator) {
		return
	}

	canceled, err := a.assignments.CancelAll(r.Context(), matchID)
	if err != nil {
		handleAssignmentError(w, r, err)
		return
	}

	for _, item := range canceled {
		obs.AssignmentTransition(string(assignment.StateCanceled))
		a.publish(item)
	}
	a.auditEvent(r, "assignment.cancel_all", map[string]any{
		"match_id": matchID,
		"canceled": strconv.Itoa(len(canceled)),
	})

	writeJSON(w, http.StatusOK, cancelAllResponse{Canceled: len(canceled)})
}

func (a *API) handleAssignmentsCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	q := r.URL.Query()
	refereeID := strings.TrimSpace(q.Get("referee"))
	if refereeID == "" {
		writeError(w, r, http.StatusBadRequest, "referee query parameter is required")
		return
	}

	var (
		items []assignment.Assignment
		err   error
	)
	switch {
	case q.Get("month") != "":
		var month period.Month
		month, err = period.ParseMonth(q.Get("month"))
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "month must look like 2026-08")
			return
		}
		items, err = a.assignments.FindByRefereeAndMonth(r.Context(), refereeID, month)
	case q.Get("state") != "":
		var state assignment.State
		state, err = assignment.ParseState(q.Get("state"))
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "unknown state: "+q.Get("state"))
			return
		}
		items, err = a.assignments.FindByRefereeAndState(r.Context(), refereeID, state)
	default:
		items, err = a.assignments.FindByReferee(r.Context(), refereeID)
	}
	if err != nil {
		handleAssignmentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assignmentListResponse{Items: items})
}

func (a *API) handleAssignmentResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/assignments/")

	if path == "stream" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.Stream(w, r)
		return
	}

	for _, action := range []string{"accept", "reject", "complete"} {
		if id, ok := strings.CutSuffix(path, "/"+action); ok && id != "" && !strings.Contains(id, "/") {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, r, http.MethodPost)
				return
			}
			a.respond(w, r, id, action)
			return
		}
	}

	if path != "" && !strings.Contains(path, "/") {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		item, err := a.assignments.FindByID(r.Context(), path)
		if err != nil {
			handleAssignmentError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
		return
	}

	writeError(w, r, http.StatusNotFound, "resource not found")
}

// respond applies accept/reject/complete. Accept and reject take an
// optional comment; complete has no body.
func (a *API) respond(w http.ResponseWriter, r *http.Request, id, action string) {
	var (
		item assignment.Assignment
		err  error
	)
	switch action {
	case "accept", "reject":
		if !a.requireRole(w, r, auth.RoleReferee) {
			return
		}
		var req respondRequest
		if r.ContentLength != 0 {
			if err := decodeJSON(w, r, &req); err != nil {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
		}
		if len(req.Comment) > 512 {
			writeError(w, r, http.StatusBadRequest, "comment too long")
			return
		}
		if action == "accept" {
			item, err = a.assignments.Accept(r.Context(), id, req.Comment)
		} else {
			item, err = a.assignments.Reject(r.Context(), id, req.Comment)
		}
	case "complete":
		if !a.requireRole(w, r, auth.RoleOperator) {
			return
		}
		item, err = a.assignments.Complete(r.Context(), id)
	}
	if err != nil {
		handleAssignmentError(w, r, err)
		return
	}

	obs.AssignmentTransition(string(item.State))
	a.publish(item)
	a.auditEvent(r, "assignment."+action, map[string]any{
		"assignment_id": item.ID,
		"match_id":      item.MatchID,
		"referee_id":    item.RefereeID,
		"state":         string(item.State),
	})

	writeJSON(w, http.StatusOK, item)
}

func (a *API) publish(item assignment.Assignment) {
	if a.stream == nil {
		return
	}
	a.stream.Publish(stream.FromAssignment(item))
}

func handleAssignmentError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, assignment.ErrValidation):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, assignment.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, assignment.ErrScheduleConflict),
		errors.Is(err, assignment.ErrInvalidTransition):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
