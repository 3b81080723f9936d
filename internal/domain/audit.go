package domain

import "time"

// Audit resource types.
const (
	ResourceTicket = "ticket"
	ResourceRole   = "role"
	ResourceActor  = "actor"
)

// AuditEntry is one record in the global append-only audit log. Sequence is
// globally monotonic across all resources. Entries for compliance-grade
// resources additionally carry Hash and PrevHash and participate in a single
// shared hash chain; for plain entries both are empty.
//
// Actor fields are snapshots taken at the time of the action, so the trail
// stays meaningful after role changes.
type AuditEntry struct {
	Sequence     int64
	ActorID      string
	ActorName    string
	ActorRole    string
	Action       string
	ResourceType string
	ResourceID   string
	OldValue     map[string]any
	NewValue     map[string]any
	CreatedAt    time.Time
	Hash         string
	PrevHash     string
}

// Chained reports whether the entry participates in the hash chain.
func (e *AuditEntry) Chained() bool {
	return e.Hash != ""
}
