package dto

import (
	"time"

	"github.com/spec-kit/workflow-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Kind        domain.TicketKind `json:"kind"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Severity    domain.Severity   `json:"severity"`
	Amount      *float64          `json:"amount"`
	OrderTotal  *float64          `json:"order_total"`
}

// TransitionRequest payload. Payload carries action-specific fields such as
// reason, resolution or data_found.
type TransitionRequest struct {
	Action  string         `json:"action"`
	Payload map[string]any `json:"payload"`
}

// AssignRequest payload.
type AssignRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// NoteRequest payload.
type NoteRequest struct {
	Content string `json:"content"`
}

// RecordActionRequest payload for side-channel timeline entries.
type RecordActionRequest struct {
	ActionType string `json:"action_type"`
	Content    string `json:"content"`
}

// TicketSummary response. SLABreached and SLARemaining are derived at read
// time; SLARemaining is seconds until the deadline and is omitted for
// tickets without one.
type TicketSummary struct {
	ID           string              `json:"id"`
	Kind         domain.TicketKind   `json:"kind"`
	Status       domain.TicketStatus `json:"status"`
	Severity     domain.Severity     `json:"severity"`
	Title        string              `json:"title"`
	AssignedTo   *string             `json:"assigned_to"`
	Amount       *float64            `json:"amount,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	DueAt        *time.Time          `json:"due_at"`
	SLABreached  bool                `json:"sla_breached"`
	SLARemaining *float64            `json:"sla_remaining_seconds,omitempty"`
	Version      int64               `json:"version"`
}

// TicketDetailResponse provides full ticket info including its timeline.
type TicketDetailResponse struct {
	TicketSummary
	Description string                  `json:"description"`
	Resolution  map[string]any          `json:"resolution,omitempty"`
	OrderTotal  *float64                `json:"order_total,omitempty"`
	Timeline    []TimelineEntryResponse `json:"timeline"`
}

// TimelineEntryResponse represents one append-only history record.
type TimelineEntryResponse struct {
	ID              string                    `json:"id"`
	Sequence        int                       `json:"sequence"`
	ActorID         string                    `json:"actor_id"`
	ActionType      domain.TimelineActionType `json:"action_type"`
	Content         string                    `json:"content"`
	ResultingStatus *domain.TicketStatus      `json:"resulting_status,omitempty"`
	CreatedAt       time.Time                 `json:"created_at"`
}
