package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/workflow-service/internal/domain"
)

func TestTableFor_AllKindsDefined(t *testing.T) {
	for _, kind := range domain.Kinds() {
		table, ok := TableFor(kind)
		require.True(t, ok, "kind %s must have a table", kind)
		assert.Equal(t, kind, table.Kind)
		assert.NotEmpty(t, table.Initial)
		assert.NotEmpty(t, table.CreateCapability)
		assert.NotEmpty(t, table.Terminal)
	}
}

func TestResolve_HappyPaths(t *testing.T) {
	cases := []struct {
		kind   domain.TicketKind
		from   domain.TicketStatus
		action Action
		to     domain.TicketStatus
	}{
		{domain.KindAlert, domain.StatusActive, ActionAcknowledge, domain.StatusAcknowledged},
		{domain.KindAlert, domain.StatusActive, ActionResolve, domain.StatusResolved},
		{domain.KindAlert, domain.StatusAcknowledged, ActionResolve, domain.StatusResolved},
		{domain.KindComplaint, domain.StatusOpen, ActionStart, domain.StatusInProgress},
		{domain.KindComplaint, domain.StatusInProgress, ActionEscalate, domain.StatusEscalated},
		{domain.KindComplaint, domain.StatusEscalated, ActionResolve, domain.StatusResolved},
		{domain.KindDSAR, domain.StatusReceived, ActionVerify, domain.StatusVerifying},
		{domain.KindDSAR, domain.StatusVerifying, ActionProcess, domain.StatusProcessing},
		{domain.KindDSAR, domain.StatusProcessing, ActionComplete, domain.StatusCompleted},
		{domain.KindIncident, domain.StatusOpen, ActionInvestigate, domain.StatusInvestigating},
		{domain.KindIncident, domain.StatusMitigating, ActionResolve, domain.StatusResolved},
		{domain.KindIncident, domain.StatusResolved, ActionPostmortem, domain.StatusPostMortem},
		{domain.KindRefund, domain.StatusPendingApproval, ActionApprove, domain.StatusApproved},
		{domain.KindRefund, domain.StatusPendingApproval, ActionDecline, domain.StatusDeclined},
	}
	for _, tc := range cases {
		table, ok := TableFor(tc.kind)
		require.True(t, ok)
		edge, ok := table.Resolve(tc.from, tc.action)
		require.True(t, ok, "%s: %s --%s--> should resolve", tc.kind, tc.from, tc.action)
		assert.Equal(t, tc.to, edge.To)
	}
}

func TestResolve_RejectsSkippedStates(t *testing.T) {
	cases := []struct {
		kind   domain.TicketKind
		from   domain.TicketStatus
		action Action
	}{
		{domain.KindIncident, domain.StatusOpen, ActionMitigate},
		{domain.KindIncident, domain.StatusOpen, ActionResolve},
		{domain.KindIncident, domain.StatusInvestigating, ActionResolve},
		{domain.KindDSAR, domain.StatusReceived, ActionProcess},
		{domain.KindDSAR, domain.StatusReceived, ActionComplete},
		{domain.KindComplaint, domain.StatusOpen, ActionResolve},
		{domain.KindComplaint, domain.StatusOpen, ActionEscalate},
	}
	for _, tc := range cases {
		table, ok := TableFor(tc.kind)
		require.True(t, ok)
		_, ok = table.Resolve(tc.from, tc.action)
		assert.False(t, ok, "%s: %s --%s--> must not resolve", tc.kind, tc.from, tc.action)
	}
}

func TestResolve_TerminalStatesResolveNothing(t *testing.T) {
	actions := []Action{
		ActionAcknowledge, ActionResolve, ActionDismiss, ActionStart, ActionEscalate,
		ActionClose, ActionVerify, ActionProcess, ActionComplete, ActionReject,
		ActionInvestigate, ActionMitigate, ActionPostmortem, ActionApprove, ActionDecline,
	}
	for _, kind := range domain.Kinds() {
		table, ok := TableFor(kind)
		require.True(t, ok)
		for _, terminal := range table.Terminal {
			for _, action := range actions {
				_, resolved := table.Resolve(terminal, action)
				assert.False(t, resolved, "%s: terminal %s must reject %s", kind, terminal, action)
			}
		}
	}
}

func TestResolve_ComplaintCloseFromAnyNonTerminal(t *testing.T) {
	table, ok := TableFor(domain.KindComplaint)
	require.True(t, ok)
	for _, from := range []domain.TicketStatus{
		domain.StatusOpen, domain.StatusInProgress, domain.StatusEscalated, domain.StatusResolved,
	} {
		edge, resolved := table.Resolve(from, ActionClose)
		require.True(t, resolved, "close from %s", from)
		assert.Equal(t, domain.StatusClosed, edge.To)
		assert.Equal(t, domain.CapComplaintClose, edge.Capability)
	}
	_, resolved := table.Resolve(domain.StatusClosed, ActionClose)
	assert.False(t, resolved, "close from closed must be rejected")
}

func TestResolve_DSARRejectFromAnyNonTerminal(t *testing.T) {
	table, ok := TableFor(domain.KindDSAR)
	require.True(t, ok)
	for _, from := range []domain.TicketStatus{
		domain.StatusReceived, domain.StatusVerifying, domain.StatusProcessing,
	} {
		edge, resolved := table.Resolve(from, ActionReject)
		require.True(t, resolved, "reject from %s", from)
		assert.Equal(t, domain.StatusRejected, edge.To)
		assert.Contains(t, edge.RequiredFields, "reason")
	}
	for _, from := range []domain.TicketStatus{domain.StatusCompleted, domain.StatusRejected} {
		_, resolved := table.Resolve(from, ActionReject)
		assert.False(t, resolved, "reject from %s must be rejected", from)
	}
}

func TestRequiredFields(t *testing.T) {
	cases := []struct {
		kind   domain.TicketKind
		from   domain.TicketStatus
		action Action
		fields []string
	}{
		{domain.KindAlert, domain.StatusActive, ActionDismiss, []string{"reason"}},
		{domain.KindComplaint, domain.StatusInProgress, ActionEscalate, []string{"reason"}},
		{domain.KindComplaint, domain.StatusInProgress, ActionResolve, []string{"resolution"}},
		{domain.KindDSAR, domain.StatusProcessing, ActionComplete, []string{"data_found"}},
		{domain.KindIncident, domain.StatusMitigating, ActionResolve, []string{"resolution"}},
		{domain.KindRefund, domain.StatusPendingApproval, ActionDecline, []string{"reason"}},
	}
	for _, tc := range cases {
		table, ok := TableFor(tc.kind)
		require.True(t, ok)
		edge, ok := table.Resolve(tc.from, tc.action)
		require.True(t, ok)
		assert.Equal(t, tc.fields, edge.RequiredFields, "%s %s %s", tc.kind, tc.from, tc.action)
	}
}

func TestValidStatuses_CoverEachKind(t *testing.T) {
	table, ok := TableFor(domain.KindDSAR)
	require.True(t, ok)
	assert.ElementsMatch(t, []domain.TicketStatus{
		domain.StatusReceived, domain.StatusVerifying, domain.StatusProcessing,
		domain.StatusCompleted, domain.StatusRejected,
	}, table.ValidStatuses())

	table, ok = TableFor(domain.KindRefund)
	require.True(t, ok)
	assert.ElementsMatch(t, []domain.TicketStatus{
		domain.StatusPendingApproval, domain.StatusApproved, domain.StatusDeclined,
	}, table.ValidStatuses())
}
