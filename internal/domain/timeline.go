package domain

import "time"

// SystemActorID marks timeline and audit entries produced by the engine
// itself rather than an authenticated actor.
const SystemActorID = "system"

// TimelineActionType captures what a timeline entry records.
type TimelineActionType string

const (
	TimelineStatusChange TimelineActionType = "status_change"
	TimelineAssigned     TimelineActionType = "assigned"
	TimelineNoteAdded    TimelineActionType = "note_added"
	TimelineDeviceAction TimelineActionType = "device_action"
	TimelineResponseSent TimelineActionType = "response_sent"
)

// TimelineEntry is an immutable, append-only record on a ticket's history.
// The first entry for every ticket is the creation transition into the
// kind's initial state.
type TimelineEntry struct {
	ID              string
	TicketID        string
	Sequence        int
	ActorID         string
	ActionType      TimelineActionType
	Content         string
	ResultingStatus *TicketStatus
	CreatedAt       time.Time
}
