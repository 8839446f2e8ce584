// Package audit records security-relevant events in an append-only trail.
// Entries are written for every authorization denial and for sensitive
// allows (role changes, privileged deletions, session revocation, lockout
// transitions). Application code never mutates or deletes them.
package audit

import (
	"context"
	"strings"
	"sync"
	"time"

	"praxis.software/internal/ids"
	"praxis.software/internal/obs"
)

// Outcome of the recorded action.
type Outcome string

const (
	OutcomeAllow Outcome = "allow"
	OutcomeDeny  Outcome = "deny"
)

// Entry is one immutable audit record.
type Entry struct {
	ID             string    `json:"id"`
	OccurredAt     time.Time `json:"occurred_at"`
	ActorID        string    `json:"actor_id,omitempty"`
	OrganizationID string    `json:"organization_id,omitempty"`
	Action         string    `json:"action"`
	TargetType     string    `json:"target_type,omitempty"`
	TargetID       string    `json:"target_id,omitempty"`
	Outcome        Outcome   `json:"outcome"`
	Reason         string    `json:"reason,omitempty"`
	RequestID      string    `json:"request_id,omitempty"`
}

// Store appends immutable entries.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
}

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier so recorded entries can be
// correlated with HTTP logs.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// Recorder writes entries to the store and mirrors each one as a structured
// log line.
type Recorder struct {
	store Store
	now   func() time.Time
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// SetClock overrides the time source. Test use.
func (r *Recorder) SetClock(fn func() time.Time) {
	if fn != nil {
		r.now = fn
	}
}

// Record fills in id, timestamp and request correlation, appends the entry
// and emits the matching log line. A failed append is returned to the
// caller; the denial or action it describes still stands.
func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = r.now().UTC()
	}
	if entry.RequestID == "" {
		entry.RequestID = requestIDFromContext(ctx)
	}

	err := r.store.Append(ctx, &entry)

	line := map[string]any{
		"ts":      entry.OccurredAt.Format(time.RFC3339Nano),
		"type":    "audit",
		"action":  entry.Action,
		"outcome": string(entry.Outcome),
	}
	if entry.ActorID != "" {
		line["actor_id"] = entry.ActorID
	}
	if entry.OrganizationID != "" {
		line["organization_id"] = entry.OrganizationID
	}
	if entry.TargetType != "" {
		line["target_type"] = entry.TargetType
		line["target_id"] = entry.TargetID
	}
	if entry.Reason != "" {
		line["reason"] = entry.Reason
	}
	if entry.RequestID != "" {
		line["request_id"] = entry.RequestID
	}
	obs.LogRequest(line)

	return err
}

// MemoryStore keeps entries in memory for tests and DSN-less runs.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Append(ctx context.Context, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

// Entries returns a copy of everything appended so far.
func (m *MemoryStore) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}
