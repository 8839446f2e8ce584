package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"praxis.software/internal/auth"
)

type updateOrganizationRequest struct {
	Name   *string         `json:"name"`
	ID     json.RawMessage `json:"id"`
	Status json.RawMessage `json:"status"`
}

type transferOrganizationRequest struct {
	NewOwnerID string `json:"new_owner_id"`
}

// Organization routes carry the org id in the path, so a cross-tenant
// denial answers 403: the caller already named the tenant, there is
// nothing left to mask.
func (a *API) handleOrganizationResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/organizations/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	orgID := parts[0]
	switch {
	case len(parts) == 1:
		a.handleOrganization(w, r, orgID)
	case len(parts) == 2 && parts[1] == "users":
		a.listOrganizationUsers(w, r, orgID)
	case len(parts) == 2 && parts[1] == "transfer":
		a.transferOrganization(w, r, orgID)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleOrganization(w http.ResponseWriter, r *http.Request, orgID string) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		org, err := a.svc.GetOrganization(r.Context(), actor, orgID)
		if err != nil {
			handleServiceError(w, r, err, false)
			return
		}
		writeJSON(w, http.StatusOK, org)
	case http.MethodPatch:
		var req updateOrganizationRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if len(req.ID) > 0 {
			writeFieldError(w, r, "id", "id cannot be changed")
			return
		}
		if len(req.Status) > 0 {
			writeFieldError(w, r, "status", "status cannot be changed directly")
			return
		}
		org, err := a.svc.UpdateOrganization(r.Context(), actor, orgID, auth.OrganizationUpdate{Name: req.Name})
		if err != nil {
			handleServiceError(w, r, err, false)
			return
		}
		writeJSON(w, http.StatusOK, org)
	case http.MethodDelete:
		if err := a.svc.DeleteOrganization(r.Context(), actor, orgID); err != nil {
			handleServiceError(w, r, err, false)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) listOrganizationUsers(w http.ResponseWriter, r *http.Request, orgID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	users, err := a.svc.ListUsers(r.Context(), actor, orgID)
	if err != nil {
		handleServiceError(w, r, err, false)
		return
	}
	if users == nil {
		users = []*auth.User{}
	}
	writeJSON(w, http.StatusOK, listUsersResponse{Items: users})
}

func (a *API) transferOrganization(w http.ResponseWriter, r *http.Request, orgID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	var req transferOrganizationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.NewOwnerID) == "" {
		writeFieldError(w, r, "new_owner_id", "new_owner_id is required")
		return
	}
	if err := a.svc.TransferOrganization(r.Context(), actor, orgID, req.NewOwnerID); err != nil {
		handleServiceError(w, r, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
