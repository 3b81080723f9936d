package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/workflow-service/internal/domain"
)

func TestResolve_UnionOfRoleAndOverrides(t *testing.T) {
	role := &domain.Role{
		ID:           "role-custom",
		Capabilities: []string{domain.CapAlertCreate, domain.CapAlertResolve},
	}
	actor := &domain.Actor{
		ID:        "a-1",
		RoleID:    role.ID,
		Overrides: []string{domain.CapRefundApprove},
	}

	set := Resolve(role, actor)
	assert.True(t, set.Has(domain.CapAlertCreate))
	assert.True(t, set.Has(domain.CapAlertResolve))
	assert.True(t, set.Has(domain.CapRefundApprove))
	assert.False(t, set.Has(domain.CapRoleManage))
}

func TestResolve_EffectiveIsAlwaysSupersetOfRole(t *testing.T) {
	role := &domain.Role{
		ID:           "role-agent",
		Capabilities: []string{domain.CapComplaintCreate, domain.CapComplaintStart, domain.CapTicketNote},
	}
	overrideSets := [][]string{
		nil,
		{},
		{domain.CapAuditView},
		{domain.CapComplaintStart},
		{domain.CapDSARVerify, domain.CapDSARProcess, domain.CapComplaintCreate},
	}
	for _, overrides := range overrideSets {
		actor := &domain.Actor{ID: "a-1", RoleID: role.ID, Overrides: overrides}
		set := Resolve(role, actor)
		for _, c := range role.Capabilities {
			assert.True(t, set.Has(c), "override set %v must not remove role capability %s", overrides, c)
		}
		for _, c := range overrides {
			assert.True(t, set.Has(c))
		}
	}
}

func TestResolve_DuplicatesCollapse(t *testing.T) {
	role := &domain.Role{Capabilities: []string{domain.CapAuditView, domain.CapAuditView}}
	actor := &domain.Actor{Overrides: []string{domain.CapAuditView}}

	set := Resolve(role, actor)
	assert.Equal(t, []string{domain.CapAuditView}, set.Keys())
}

func TestKeys_Sorted(t *testing.T) {
	role := &domain.Role{Capabilities: []string{"z.cap", "a.cap", "m.cap"}}
	actor := &domain.Actor{Overrides: []string{"b.cap"}}

	assert.Equal(t, []string{"a.cap", "b.cap", "m.cap", "z.cap"}, Resolve(role, actor).Keys())
}

func TestHas_EmptySet(t *testing.T) {
	var set CapabilitySet
	assert.False(t, set.Has(domain.CapAlertCreate))
}
