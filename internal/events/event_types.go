package events

import (
	"time"

	"github.com/spec-kit/workflow-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventTicketTransitioned EventType = "ticket_transitioned"
	EventTicketAssigned     EventType = "ticket_assigned"
	EventTicketNoteAdded    EventType = "ticket_note_added"
)

// Event is the fire-and-forget notification emitted on every transition.
// Delivery (toast, email, webhook) is entirely the subscriber's concern.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Kind     domain.TicketKind   `json:"kind"`
	Status   domain.TicketStatus `json:"status"`
	Severity domain.Severity     `json:"severity,omitempty"`
	Title    string              `json:"title"`
	DueAt    *time.Time          `json:"due_at,omitempty"`
}

// TicketTransitionedPayload payload.
type TicketTransitionedPayload struct {
	Action    string              `json:"action"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID *string `json:"assignee_id,omitempty"`
}

// TicketNoteAddedPayload payload.
type TicketNoteAddedPayload struct {
	ActionType domain.TimelineActionType `json:"action_type"`
	Preview    string                    `json:"preview"`
}
