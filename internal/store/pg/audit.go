package pg

import (
	"context"
	"database/sql"

	"praxis.software/internal/audit"
	"praxis.software/internal/ids"
)

// AuditStore appends to the audit_log table. The table carries no update or
// delete path in this codebase; rows are immutable once written.
type AuditStore struct {
	db *sql.DB
}

var _ audit.Store = (*AuditStore)(nil)

func NewAuditStore(s *Store) *AuditStore { return &AuditStore{db: s.db} }

func (s *AuditStore) Append(ctx context.Context, entry *audit.Entry) error {
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into audit_log (id, occurred_at, actor_id, organization_id, action, target_type, target_id, outcome, reason, request_id)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, entry.ID, entry.OccurredAt, nullable(entry.ActorID), nullable(entry.OrganizationID),
		entry.Action, nullable(entry.TargetType), nullable(entry.TargetID),
		string(entry.Outcome), nullable(entry.Reason), nullable(entry.RequestID))
	return mapError(err)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
