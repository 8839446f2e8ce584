package auth

import (
	"errors"
	"fmt"

	"praxis.software/internal/authz"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("resource conflict")
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCredentials covers both unknown identifier and wrong
	// password; callers must not distinguish the two.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrInvalidToken   = errors.New("invalid token")
	ErrSessionExpired = errors.New("session expired or revoked")
	ErrInactiveUser   = errors.New("user is inactive")

	// ErrLocked is returned for any login attempt against a locked
	// identifier, independent of credential correctness.
	ErrLocked = errors.New("too many attempts")
)

// DeniedError carries an authorization denial out of the service layer. The
// reason code steers the HTTP masking policy (403 vs 404) and lands in the
// audit log; clients receive only a generic message.
type DeniedError struct {
	Reason authz.Reason
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("permission denied: %s", e.Reason)
}

// Denied wraps a denial reason into an error.
func Denied(reason authz.Reason) error {
	return &DeniedError{Reason: reason}
}

// DenialReason extracts the reason code if err is an authorization denial.
func DenialReason(err error) (authz.Reason, bool) {
	var denied *DeniedError
	if errors.As(err, &denied) {
		return denied.Reason, true
	}
	return "", false
}
