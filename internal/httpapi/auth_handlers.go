package httpapi

import (
	"net/http"
	"strings"

	"praxis.software/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type signupRequest struct {
	OrganizationName string `json:"organization_name"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
}

type signupResponse struct {
	Organization *auth.Organization `json:"organization"`
	User         *auth.User         `json:"user"`
}

type passwordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type unlockRequest struct {
	Identifier string `json:"identifier"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	token, _, err := a.svc.Login(r.Context(), req.Email, req.Password, clientIP(r))
	if err != nil {
		handleServiceError(w, r, err, false)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	if err := a.svc.Logout(r.Context(), actor); err != nil {
		handleServiceError(w, r, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleLogoutOthers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	if err := a.svc.LogoutOthers(r.Context(), actor); err != nil {
		handleServiceError(w, r, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePasswordChange verifies the current password and rotates the hash.
// Every session of the user is revoked, the current one included, so the
// client must log in again.
func (a *API) handlePasswordChange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	var req passwordChangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.svc.ChangePassword(r.Context(), actor, req.CurrentPassword, req.NewPassword); err != nil {
		handleServiceError(w, r, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	org, user, err := a.svc.SignupOrganization(r.Context(), req.OrganizationName, auth.NewUserInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		handleServiceError(w, r, err, false)
		return
	}
	writeJSON(w, http.StatusCreated, signupResponse{Organization: org, User: user})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	user, err := a.svc.Me(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err, false)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleUnlock releases a hard lock out of band.
func (a *API) handleUnlock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	actor, ok := actorOrUnauthorized(w, r)
	if !ok {
		return
	}
	var req unlockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Identifier) == "" {
		writeFieldError(w, r, "identifier", "identifier is required")
		return
	}
	if err := a.svc.UnlockIdentifier(r.Context(), actor, req.Identifier); err != nil {
		handleServiceError(w, r, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
