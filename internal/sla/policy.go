// Package sla derives deadlines and breach status. Breach is computed at
// read time from due_at and the ticket's current status; it is never stored,
// so a ticket resolved a second before its deadline is never marked breached
// and an open ticket becomes breached the instant the deadline passes.
package sla

import (
	"time"

	"github.com/spec-kit/workflow-service/internal/domain"
	"github.com/spec-kit/workflow-service/internal/workflow"
)

// Policy holds the per-kind deadline windows. Zero windows mean "no
// deadline" for that kind/severity combination.
type Policy struct {
	DSARWindow   time.Duration
	RefundWindow time.Duration
	Complaint    map[domain.Severity]time.Duration
	Incident     map[domain.Severity]time.Duration
	Alert        map[domain.Severity]time.Duration
}

// Default returns the stock policy windows.
func Default() Policy {
	return Policy{
		DSARWindow:   30 * 24 * time.Hour,
		RefundWindow: 7 * 24 * time.Hour,
		Complaint: map[domain.Severity]time.Duration{
			domain.SeverityCritical: 24 * time.Hour,
			domain.SeverityHigh:     72 * time.Hour,
			domain.SeverityMedium:   7 * 24 * time.Hour,
			domain.SeverityLow:      14 * 24 * time.Hour,
		},
		Incident: map[domain.Severity]time.Duration{
			domain.SeverityCritical: 4 * time.Hour,
			domain.SeverityHigh:     24 * time.Hour,
			domain.SeverityMedium:   72 * time.Hour,
			domain.SeverityLow:      7 * 24 * time.Hour,
		},
		// medium/low alerts carry no deadline
		Alert: map[domain.Severity]time.Duration{
			domain.SeverityCritical: 4 * time.Hour,
			domain.SeverityHigh:     24 * time.Hour,
		},
	}
}

// DueAt computes the deadline for a ticket created at createdAt. A nil
// result means the kind/severity has no deadline.
func (p Policy) DueAt(kind domain.TicketKind, severity domain.Severity, createdAt time.Time) *time.Time {
	var window time.Duration
	switch kind {
	case domain.KindDSAR:
		window = p.DSARWindow
	case domain.KindRefund:
		window = p.RefundWindow
	case domain.KindComplaint:
		window = p.Complaint[severity]
	case domain.KindIncident:
		window = p.Incident[severity]
	case domain.KindAlert:
		window = p.Alert[severity]
	}
	if window <= 0 {
		return nil
	}
	due := createdAt.Add(window)
	return &due
}

// IsBreached reports whether the deadline has passed while the ticket
// remains non-terminal.
func (p Policy) IsBreached(ticket *domain.Ticket, now time.Time) bool {
	if ticket.DueAt == nil {
		return false
	}
	table, ok := workflow.TableFor(ticket.Kind)
	if !ok || table.IsTerminal(ticket.Status) {
		return false
	}
	return now.After(*ticket.DueAt)
}

// Remaining returns time left until breach, negative once past due. Nil for
// tickets without a deadline or already in a terminal state.
func (p Policy) Remaining(ticket *domain.Ticket, now time.Time) *time.Duration {
	if ticket.DueAt == nil {
		return nil
	}
	table, ok := workflow.TableFor(ticket.Kind)
	if !ok || table.IsTerminal(ticket.Status) {
		return nil
	}
	d := ticket.DueAt.Sub(now)
	return &d
}
