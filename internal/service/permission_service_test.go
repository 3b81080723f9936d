package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/workflow-service/internal/domain"
	"github.com/spec-kit/workflow-service/internal/repository/memory"
)

type permFixture struct {
	svc    *PermissionService
	audit  *AuditService
	actors *memory.ActorRepository
	roles  *memory.RoleRepository
}

func newPermFixture(t *testing.T) *permFixture {
	t.Helper()
	ctx := context.Background()
	fix := &permFixture{
		actors: memory.NewActorRepository(),
		roles:  memory.NewRoleRepository(),
	}
	fix.audit = NewAuditService(memory.NewAuditRepository(), zap.NewNop())
	fix.svc = NewPermissionService(fix.actors, fix.roles, fix.audit, zap.NewNop())

	roles := []domain.Role{
		{ID: domain.RoleAdmin, Label: "Administrator", Capabilities: []string{domain.CapRoleManage}, System: true},
		{ID: domain.RoleAgent, Label: "Support Agent", Capabilities: []string{domain.CapTicketNote}, System: true},
	}
	for i := range roles {
		require.NoError(t, fix.roles.Create(ctx, &roles[i]))
	}
	actors := []domain.Actor{
		{ID: "admin", Name: "Asha", Email: "asha@example.com", RoleID: domain.RoleAdmin, Active: true},
		{ID: "agent", Name: "Ben", Email: "ben@example.com", RoleID: domain.RoleAgent, Active: true},
	}
	for i := range actors {
		require.NoError(t, fix.actors.Create(ctx, &actors[i]))
	}
	return fix
}

func TestResolveEffective(t *testing.T) {
	fix := newPermFixture(t)
	ctx := context.Background()

	effective, err := fix.svc.ResolveEffective(ctx, "agent")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgent, effective.RoleID)
	assert.Equal(t, "Support Agent", effective.RoleLabel)
	assert.Equal(t, []string{domain.CapTicketNote}, effective.Capabilities)
	assert.Empty(t, effective.Overrides)

	_, err = fix.svc.ResolveEffective(ctx, "nobody")
	requireCode(t, err, "NOT_FOUND")
}

func TestCreateRole(t *testing.T) {
	fix := newPermFixture(t)
	ctx := context.Background()

	role, err := fix.svc.CreateRole(ctx, "admin", RoleInput{
		ID:    "role-triage",
		Label: "Triage",
		Capabilities: []string{
			domain.CapAlertAcknowledge, domain.CapAlertAcknowledge, " ", domain.CapTicketNote,
		},
	})
	require.NoError(t, err)
	assert.False(t, role.System)
	assert.Equal(t, []string{domain.CapAlertAcknowledge, domain.CapTicketNote}, role.Capabilities, "capabilities deduped and cleaned")

	_, err = fix.svc.CreateRole(ctx, "admin", RoleInput{ID: "role-triage", Label: "Again"})
	requireCode(t, err, "CONFLICT")

	_, err = fix.svc.CreateRole(ctx, "admin", RoleInput{ID: " ", Label: "x"})
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = fix.svc.CreateRole(ctx, "agent", RoleInput{ID: "role-x", Label: "X"})
	requireCode(t, err, "PERMISSION_DENIED")
}

func TestUpdateRole_SystemRolesImmutable(t *testing.T) {
	fix := newPermFixture(t)
	ctx := context.Background()

	_, err := fix.svc.UpdateRole(ctx, "admin", domain.RoleAgent, RoleInput{Label: "Renamed"})
	requireCode(t, err, "CONFLICT")

	role, err := fix.svc.CreateRole(ctx, "admin", RoleInput{ID: "role-custom", Label: "Custom"})
	require.NoError(t, err)
	updated, err := fix.svc.UpdateRole(ctx, "admin", role.ID, RoleInput{
		Label:        "Custom v2",
		Capabilities: []string{domain.CapAuditView},
	})
	require.NoError(t, err)
	assert.Equal(t, "Custom v2", updated.Label)
	assert.Equal(t, []string{domain.CapAuditView}, updated.Capabilities)
}

func TestDeleteRole_ReassignsActorsToDefault(t *testing.T) {
	fix := newPermFixture(t)
	ctx := context.Background()

	role, err := fix.svc.CreateRole(ctx, "admin", RoleInput{ID: "role-temp", Label: "Temp"})
	require.NoError(t, err)
	member := &domain.Actor{ID: "temp-actor", Name: "Tia", Email: "tia@example.com", RoleID: role.ID, Active: true}
	require.NoError(t, fix.actors.Create(ctx, member))

	require.NoError(t, fix.svc.DeleteRole(ctx, "admin", role.ID))

	reassigned, err := fix.actors.GetByID(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultRoleID, reassigned.RoleID)

	_, err = fix.roles.GetByID(ctx, role.ID)
	require.Error(t, err)

	err = fix.svc.DeleteRole(ctx, "admin", domain.RoleAdmin)
	requireCode(t, err, "CONFLICT")

	err = fix.svc.DeleteRole(ctx, "admin", "role-gone")
	requireCode(t, err, "NOT_FOUND")
}

func TestGrantOverride(t *testing.T) {
	fix := newPermFixture(t)
	ctx := context.Background()

	target, err := fix.svc.GrantOverride(ctx, "admin", "agent", domain.CapRefundApprove)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.CapRefundApprove}, target.Overrides)

	// idempotent
	again, err := fix.svc.GrantOverride(ctx, "admin", "agent", domain.CapRefundApprove)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.CapRefundApprove}, again.Overrides)

	effective, err := fix.svc.ResolveEffective(ctx, "agent")
	require.NoError(t, err)
	assert.Contains(t, effective.Capabilities, domain.CapRefundApprove)
	assert.Contains(t, effective.Capabilities, domain.CapTicketNote, "role capabilities are never removed")

	_, err = fix.svc.GrantOverride(ctx, "admin", "agent", "")
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = fix.svc.GrantOverride(ctx, "agent", "admin", domain.CapRoleManage)
	requireCode(t, err, "PERMISSION_DENIED")
}

func TestRoleChangesLandOnComplianceChain(t *testing.T) {
	fix := newPermFixture(t)
	ctx := context.Background()

	role, err := fix.svc.CreateRole(ctx, "admin", RoleInput{ID: "role-audit-me", Label: "Audit Me"})
	require.NoError(t, err)
	_, err = fix.svc.UpdateRole(ctx, "admin", role.ID, RoleInput{Label: "Audited"})
	require.NoError(t, err)
	_, err = fix.svc.GrantOverride(ctx, "admin", "agent", domain.CapAuditView)
	require.NoError(t, err)
	require.NoError(t, fix.svc.DeleteRole(ctx, "admin", role.ID))

	result, err := fix.audit.VerifyChain(ctx, 0)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, 4, result.Checked, "every role/override change is chained")

	trail, err := fix.audit.Trail(ctx, role.ID)
	require.NoError(t, err)
	require.Len(t, trail, 3)
	assert.Equal(t, "role.create", trail[0].Action)
	assert.Equal(t, "role.update", trail[1].Action)
	assert.Equal(t, "role.delete", trail[2].Action)
	for _, e := range trail {
		assert.True(t, e.Chained())
	}
}
