package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/workflow-service/internal/domain"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func ticketAt(kind domain.TicketKind, severity domain.Severity, status domain.TicketStatus) *domain.Ticket {
	p := Default()
	return &domain.Ticket{
		ID:        "t-1",
		Kind:      kind,
		Severity:  severity,
		Status:    status,
		CreatedAt: baseTime,
		DueAt:     p.DueAt(kind, severity, baseTime),
	}
}

func TestDueAt_Windows(t *testing.T) {
	p := Default()
	cases := []struct {
		kind     domain.TicketKind
		severity domain.Severity
		window   time.Duration
	}{
		{domain.KindDSAR, domain.SeverityMedium, 30 * 24 * time.Hour},
		{domain.KindRefund, domain.SeverityMedium, 7 * 24 * time.Hour},
		{domain.KindComplaint, domain.SeverityCritical, 24 * time.Hour},
		{domain.KindComplaint, domain.SeverityHigh, 72 * time.Hour},
		{domain.KindComplaint, domain.SeverityMedium, 7 * 24 * time.Hour},
		{domain.KindComplaint, domain.SeverityLow, 14 * 24 * time.Hour},
		{domain.KindIncident, domain.SeverityCritical, 4 * time.Hour},
		{domain.KindIncident, domain.SeverityHigh, 24 * time.Hour},
		{domain.KindIncident, domain.SeverityMedium, 72 * time.Hour},
		{domain.KindIncident, domain.SeverityLow, 7 * 24 * time.Hour},
		{domain.KindAlert, domain.SeverityCritical, 4 * time.Hour},
		{domain.KindAlert, domain.SeverityHigh, 24 * time.Hour},
	}
	for _, tc := range cases {
		due := p.DueAt(tc.kind, tc.severity, baseTime)
		require.NotNil(t, due, "%s/%s must have a deadline", tc.kind, tc.severity)
		assert.Equal(t, baseTime.Add(tc.window), *due, "%s/%s", tc.kind, tc.severity)
	}
}

func TestDueAt_AlertsBelowHighHaveNoDeadline(t *testing.T) {
	p := Default()
	assert.Nil(t, p.DueAt(domain.KindAlert, domain.SeverityMedium, baseTime))
	assert.Nil(t, p.DueAt(domain.KindAlert, domain.SeverityLow, baseTime))
}

func TestIsBreached_DSARPastDeadline(t *testing.T) {
	p := Default()
	ticket := ticketAt(domain.KindDSAR, domain.SeverityMedium, domain.StatusProcessing)

	assert.False(t, p.IsBreached(ticket, baseTime.Add(29*24*time.Hour)))
	assert.True(t, p.IsBreached(ticket, baseTime.Add(31*24*time.Hour)))
}

func TestIsBreached_TerminalStatusSuppressesBreach(t *testing.T) {
	p := Default()
	ticket := ticketAt(domain.KindDSAR, domain.SeverityMedium, domain.StatusCompleted)

	assert.False(t, p.IsBreached(ticket, baseTime.Add(31*24*time.Hour)))

	rejected := ticketAt(domain.KindDSAR, domain.SeverityMedium, domain.StatusRejected)
	assert.False(t, p.IsBreached(rejected, baseTime.Add(365*24*time.Hour)))
}

func TestIsBreached_NoDeadlineNeverBreaches(t *testing.T) {
	p := Default()
	ticket := ticketAt(domain.KindAlert, domain.SeverityLow, domain.StatusActive)
	require.Nil(t, ticket.DueAt)
	assert.False(t, p.IsBreached(ticket, baseTime.Add(1000*24*time.Hour)))
}

func TestIsBreached_MonotonicOverTime(t *testing.T) {
	p := Default()
	ticket := ticketAt(domain.KindIncident, domain.SeverityCritical, domain.StatusInvestigating)

	breachedOnce := false
	for offset := time.Hour; offset <= 8*time.Hour; offset += time.Hour {
		breached := p.IsBreached(ticket, baseTime.Add(offset))
		if breachedOnce {
			assert.True(t, breached, "breach must not clear while status is unchanged")
		}
		if breached {
			breachedOnce = true
		}
	}
	assert.True(t, breachedOnce)
}

func TestRemaining(t *testing.T) {
	p := Default()
	ticket := ticketAt(domain.KindIncident, domain.SeverityCritical, domain.StatusOpen)

	remaining := p.Remaining(ticket, baseTime.Add(time.Hour))
	require.NotNil(t, remaining)
	assert.Equal(t, 3*time.Hour, *remaining)

	overdue := p.Remaining(ticket, baseTime.Add(5*time.Hour))
	require.NotNil(t, overdue)
	assert.Equal(t, -time.Hour, *overdue)

	done := ticketAt(domain.KindIncident, domain.SeverityCritical, domain.StatusPostMortem)
	assert.Nil(t, p.Remaining(done, baseTime.Add(time.Hour)))
}
