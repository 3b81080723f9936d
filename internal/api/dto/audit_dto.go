package dto

import "time"

// AuditEntryResponse is one record from the audit trail. Hash and PrevHash
// are present only for chained (compliance) entries.
type AuditEntryResponse struct {
	Sequence     int64          `json:"sequence"`
	ActorID      string         `json:"actor_id"`
	ActorName    string         `json:"actor_name"`
	ActorRole    string         `json:"actor_role"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	OldValue     map[string]any `json:"old_value,omitempty"`
	NewValue     map[string]any `json:"new_value,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	Hash         string         `json:"hash,omitempty"`
	PrevHash     string         `json:"prev_hash,omitempty"`
}

// VerifyChainResponse reports the result of a chain verification pass.
type VerifyChainResponse struct {
	Valid    bool   `json:"valid"`
	BrokenAt *int64 `json:"broken_at,omitempty"`
	Checked  int    `json:"checked"`
}
