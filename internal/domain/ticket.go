package domain

import "time"

// TicketKind discriminates the five operational ticket variants. Every kind
// shares the same engine; behavior differences live in the per-kind
// transition table and SLA policy.
type TicketKind string

const (
	KindAlert     TicketKind = "alert"
	KindComplaint TicketKind = "complaint"
	KindDSAR      TicketKind = "dsar"
	KindIncident  TicketKind = "incident"
	KindRefund    TicketKind = "refund"
)

// Kinds lists all supported ticket kinds.
func Kinds() []TicketKind {
	return []TicketKind{KindAlert, KindComplaint, KindDSAR, KindIncident, KindRefund}
}

// IsComplianceKind reports whether audit entries for this kind must be
// hash-chained.
func (k TicketKind) IsComplianceKind() bool {
	return k == KindDSAR || k == KindRefund
}

// TicketStatus is a kind-scoped lifecycle state. The valid set per kind is
// defined by the kind's transition table.
type TicketStatus string

const (
	// alert
	StatusActive       TicketStatus = "active"
	StatusAcknowledged TicketStatus = "acknowledged"
	StatusDismissed    TicketStatus = "dismissed"

	// complaint / incident shared vocabulary
	StatusOpen       TicketStatus = "open"
	StatusInProgress TicketStatus = "in_progress"
	StatusEscalated  TicketStatus = "escalated"
	StatusResolved   TicketStatus = "resolved"
	StatusClosed     TicketStatus = "closed"

	// dsar
	StatusReceived   TicketStatus = "received"
	StatusVerifying  TicketStatus = "verifying"
	StatusProcessing TicketStatus = "processing"
	StatusCompleted  TicketStatus = "completed"
	StatusRejected   TicketStatus = "rejected"

	// incident
	StatusInvestigating TicketStatus = "investigating"
	StatusMitigating    TicketStatus = "mitigating"
	StatusPostMortem    TicketStatus = "post_mortem"

	// refund
	StatusPendingApproval TicketStatus = "pending_approval"
	StatusApproved        TicketStatus = "approved"
	StatusDeclined        TicketStatus = "declined"
)

// Severity drives SLA windows for severity-scoped kinds.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Ticket is the aggregate tracked through a kind-specific state machine.
// DueAt is derived from the SLA policy at creation and frozen thereafter;
// breach status is never stored, always computed at read time. Version backs
// optimistic concurrency on mutation.
type Ticket struct {
	ID          string
	Kind        TicketKind
	Status      TicketStatus
	Severity    Severity
	Title       string
	Description string
	AssignedTo  *string
	Resolution  map[string]any
	Amount      *float64
	OrderTotal  *float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DueAt       *time.Time
	Version     int64
}
