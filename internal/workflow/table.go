package workflow

import (
	"github.com/spec-kit/workflow-service/internal/domain"
)

// Action is a named transition request on a ticket.
type Action string

const (
	ActionAcknowledge Action = "acknowledge"
	ActionResolve     Action = "resolve"
	ActionDismiss     Action = "dismiss"
	ActionStart       Action = "start"
	ActionEscalate    Action = "escalate"
	ActionClose       Action = "close"
	ActionVerify      Action = "verify"
	ActionProcess     Action = "process"
	ActionComplete    Action = "complete"
	ActionReject      Action = "reject"
	ActionInvestigate Action = "investigate"
	ActionMitigate    Action = "mitigate"
	ActionPostmortem  Action = "postmortem"
	ActionApprove     Action = "approve"
	ActionDecline     Action = "decline"
)

// Edge is one allowed transition: who may take it and what the payload must
// carry.
type Edge struct {
	From           domain.TicketStatus
	Action         Action
	To             domain.TicketStatus
	Capability     string
	RequiredFields []string
}

// Wildcard is an action reachable from every non-terminal state of a kind.
// Whether a kind offers a soft-terminal close/reject this way is per-kind
// table data, not engine logic.
type Wildcard struct {
	Action         Action
	To             domain.TicketStatus
	Capability     string
	RequiredFields []string
}

// Table is the finite state machine for one ticket kind.
type Table struct {
	Kind             domain.TicketKind
	Initial          domain.TicketStatus
	CreateCapability string
	Edges            []Edge
	Wildcards        []Wildcard
	Terminal         []domain.TicketStatus
}

var tables = map[domain.TicketKind]*Table{
	domain.KindAlert: {
		Kind:             domain.KindAlert,
		Initial:          domain.StatusActive,
		CreateCapability: domain.CapAlertCreate,
		Edges: []Edge{
			{From: domain.StatusActive, Action: ActionAcknowledge, To: domain.StatusAcknowledged, Capability: domain.CapAlertAcknowledge},
			{From: domain.StatusActive, Action: ActionResolve, To: domain.StatusResolved, Capability: domain.CapAlertResolve},
			{From: domain.StatusActive, Action: ActionDismiss, To: domain.StatusDismissed, Capability: domain.CapAlertDismiss, RequiredFields: []string{"reason"}},
			{From: domain.StatusAcknowledged, Action: ActionResolve, To: domain.StatusResolved, Capability: domain.CapAlertResolve},
		},
		Terminal: []domain.TicketStatus{domain.StatusResolved, domain.StatusDismissed},
	},
	domain.KindComplaint: {
		Kind:             domain.KindComplaint,
		Initial:          domain.StatusOpen,
		CreateCapability: domain.CapComplaintCreate,
		Edges: []Edge{
			{From: domain.StatusOpen, Action: ActionStart, To: domain.StatusInProgress, Capability: domain.CapComplaintStart},
			{From: domain.StatusInProgress, Action: ActionEscalate, To: domain.StatusEscalated, Capability: domain.CapComplaintEscalate, RequiredFields: []string{"reason"}},
			{From: domain.StatusInProgress, Action: ActionResolve, To: domain.StatusResolved, Capability: domain.CapComplaintResolve, RequiredFields: []string{"resolution"}},
			{From: domain.StatusEscalated, Action: ActionResolve, To: domain.StatusResolved, Capability: domain.CapComplaintResolve, RequiredFields: []string{"resolution"}},
		},
		Wildcards: []Wildcard{
			{Action: ActionClose, To: domain.StatusClosed, Capability: domain.CapComplaintClose},
		},
		Terminal: []domain.TicketStatus{domain.StatusClosed},
	},
	domain.KindDSAR: {
		Kind:             domain.KindDSAR,
		Initial:          domain.StatusReceived,
		CreateCapability: domain.CapDSARCreate,
		Edges: []Edge{
			{From: domain.StatusReceived, Action: ActionVerify, To: domain.StatusVerifying, Capability: domain.CapDSARVerify},
			{From: domain.StatusVerifying, Action: ActionProcess, To: domain.StatusProcessing, Capability: domain.CapDSARProcess},
			{From: domain.StatusProcessing, Action: ActionComplete, To: domain.StatusCompleted, Capability: domain.CapDSARComplete, RequiredFields: []string{"data_found"}},
		},
		Wildcards: []Wildcard{
			{Action: ActionReject, To: domain.StatusRejected, Capability: domain.CapDSARReject, RequiredFields: []string{"reason"}},
		},
		Terminal: []domain.TicketStatus{domain.StatusCompleted, domain.StatusRejected},
	},
	domain.KindIncident: {
		Kind:             domain.KindIncident,
		Initial:          domain.StatusOpen,
		CreateCapability: domain.CapIncidentCreate,
		Edges: []Edge{
			{From: domain.StatusOpen, Action: ActionInvestigate, To: domain.StatusInvestigating, Capability: domain.CapIncidentInvestigate},
			{From: domain.StatusInvestigating, Action: ActionMitigate, To: domain.StatusMitigating, Capability: domain.CapIncidentMitigate},
			{From: domain.StatusMitigating, Action: ActionResolve, To: domain.StatusResolved, Capability: domain.CapIncidentResolve, RequiredFields: []string{"resolution"}},
			{From: domain.StatusResolved, Action: ActionPostmortem, To: domain.StatusPostMortem, Capability: domain.CapIncidentPostmortem},
		},
		Terminal: []domain.TicketStatus{domain.StatusPostMortem},
	},
	domain.KindRefund: {
		Kind:             domain.KindRefund,
		Initial:          domain.StatusPendingApproval,
		CreateCapability: domain.CapRefundSubmit,
		Edges: []Edge{
			{From: domain.StatusPendingApproval, Action: ActionApprove, To: domain.StatusApproved, Capability: domain.CapRefundApprove},
			{From: domain.StatusPendingApproval, Action: ActionDecline, To: domain.StatusDeclined, Capability: domain.CapRefundDecline, RequiredFields: []string{"reason"}},
		},
		Terminal: []domain.TicketStatus{domain.StatusApproved, domain.StatusDeclined},
	},
}

// TableFor returns the transition table for a kind.
func TableFor(kind domain.TicketKind) (*Table, bool) {
	t, ok := tables[kind]
	return t, ok
}

// IsTerminal reports whether no transition is defined from the status.
func (t *Table) IsTerminal(status domain.TicketStatus) bool {
	for _, s := range t.Terminal {
		if s == status {
			return true
		}
	}
	return false
}

// Resolve finds the edge for (from, action). Terminal states never resolve,
// wildcard actions included.
func (t *Table) Resolve(from domain.TicketStatus, action Action) (*Edge, bool) {
	if t.IsTerminal(from) {
		return nil, false
	}
	for i := range t.Edges {
		if t.Edges[i].From == from && t.Edges[i].Action == action {
			return &t.Edges[i], true
		}
	}
	for _, w := range t.Wildcards {
		if w.Action == action {
			return &Edge{
				From:           from,
				Action:         w.Action,
				To:             w.To,
				Capability:     w.Capability,
				RequiredFields: w.RequiredFields,
			}, true
		}
	}
	return nil, false
}

// ValidStatuses returns every status reachable in the kind's state machine.
func (t *Table) ValidStatuses() []domain.TicketStatus {
	seen := map[domain.TicketStatus]bool{t.Initial: true}
	out := []domain.TicketStatus{t.Initial}
	add := func(s domain.TicketStatus) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, e := range t.Edges {
		add(e.From)
		add(e.To)
	}
	for _, w := range t.Wildcards {
		add(w.To)
	}
	return out
}
