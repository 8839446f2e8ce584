package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"praxis.software/internal/auth"
	"praxis.software/internal/authz"
)

type createUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// updateUserRequest deliberately declares the protected fields. A client
// smuggling organization_id or id into a PATCH gets a field-level 400
// instead of a silent drop, and raw json distinguishes "absent" from
// "null" for the mutable ones.
type updateUserRequest struct {
	Email          *string         `json:"email"`
	FirstName      *string         `json:"first_name"`
	LastName       *string         `json:"last_name"`
	Role           *string         `json:"role"`
	IsActive       *bool           `json:"is_active"`
	ID             json.RawMessage `json:"id"`
	OrganizationID json.RawMessage `json:"organization_id"`
}

type listUsersResponse struct {
	Items []*auth.User `json:"items"`
}

func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createUser(w, r)
	case http.MethodGet:
		a.listUsers(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/users/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getUser(w, r, id)
	case http.MethodPatch:
		a.updateUser(w, r, id)
	case http.MethodDelete:
		a.deleteUser(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, err := authz.ParseRole(req.Role)
	if err != nil {
		writeFieldError(w, r, "role", err.Error())
		return
	}
	user, err := a.svc.CreateUser(r.Context(), actor, auth.NewUserInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      role,
	})
	if err != nil {
		handleServiceError(w, r, err, false)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/v1/users/%s", user.ID))
	writeJSON(w, http.StatusCreated, user)
}

// listUsers lists the actor's own organization. Other tenants' rosters are
// reached through the organization-scoped path and denied there.
func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	users, err := a.svc.ListUsers(r.Context(), actor, actor.OrganizationID)
	if err != nil {
		handleServiceError(w, r, err, false)
		return
	}
	if users == nil {
		users = []*auth.User{}
	}
	writeJSON(w, http.StatusOK, listUsersResponse{Items: users})
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	user, err := a.svc.GetUser(r.Context(), actor, id)
	if err != nil {
		handleServiceError(w, r, err, true)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.OrganizationID) > 0 {
		writeFieldError(w, r, "organization_id", "organization_id cannot be changed")
		return
	}
	if len(req.ID) > 0 {
		writeFieldError(w, r, "id", "id cannot be changed")
		return
	}

	upd := auth.UserUpdate{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsActive:  req.IsActive,
	}
	if req.Role != nil {
		role, err := authz.ParseRole(*req.Role)
		if err != nil {
			writeFieldError(w, r, "role", err.Error())
			return
		}
		upd.Role = &role
	}

	user, err := a.svc.UpdateUser(r.Context(), actor, id, upd)
	if err != nil {
		handleServiceError(w, r, err, true)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	if err := a.svc.DeleteUser(r.Context(), actor, id); err != nil {
		handleServiceError(w, r, err, true)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
