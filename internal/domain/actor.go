package domain

import "time"

// Capability keys. Granted via a Role, optionally extended by additive
// per-actor overrides.
const (
	CapAlertCreate      = "alerts.create"
	CapAlertAcknowledge = "alerts.acknowledge"
	CapAlertResolve     = "alerts.resolve"
	CapAlertDismiss     = "alerts.dismiss"

	CapComplaintCreate   = "complaints.create"
	CapComplaintStart    = "complaints.start"
	CapComplaintEscalate = "complaints.escalate"
	CapComplaintResolve  = "complaints.resolve"
	CapComplaintClose    = "complaints.close"

	CapDSARCreate   = "dsar.create"
	CapDSARVerify   = "dsar.verify"
	CapDSARProcess  = "dsar.process"
	CapDSARComplete = "dsar.complete"
	CapDSARReject   = "dsar.reject"

	CapIncidentCreate      = "incidents.create"
	CapIncidentInvestigate = "incidents.investigate"
	CapIncidentMitigate    = "incidents.mitigate"
	CapIncidentResolve     = "incidents.resolve"
	CapIncidentPostmortem  = "incidents.postmortem"

	CapRefundSubmit  = "refunds.submit"
	CapRefundApprove = "refunds.approve"
	CapRefundDecline = "refunds.decline"

	CapTicketAssign = "tickets.assign"
	CapTicketNote   = "tickets.note"

	CapRoleManage  = "roles.manage"
	CapAuditView   = "audit.view"
	CapAuditVerify = "audit.verify"
)

// Role groups capability keys. System roles are immutable; custom roles may
// be edited and deleted (deletion reassigns affected actors to the default
// role).
type Role struct {
	ID           string
	Label        string
	Capabilities []string
	System       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Well-known system role ids seeded by migrations.
const (
	RoleAdmin      = "role-admin"
	RoleAgent      = "role-agent"
	RoleCompliance = "role-compliance"
	RoleViewer     = "role-viewer"

	// DefaultRoleID is where actors land when their custom role is deleted.
	DefaultRoleID = RoleAgent
)

// SystemRoles returns the built-in role set. The Postgres migrations seed
// the same four roles; the in-memory stores seed them at startup so a
// DSN-less run can authenticate and act.
func SystemRoles(now time.Time) []Role {
	return []Role{
		{ID: RoleAdmin, Label: "Administrator", System: true, CreatedAt: now, UpdatedAt: now, Capabilities: []string{
			CapAlertCreate, CapAlertAcknowledge, CapAlertResolve, CapAlertDismiss,
			CapComplaintCreate, CapComplaintStart, CapComplaintEscalate, CapComplaintResolve, CapComplaintClose,
			CapDSARCreate, CapDSARVerify, CapDSARProcess, CapDSARComplete, CapDSARReject,
			CapIncidentCreate, CapIncidentInvestigate, CapIncidentMitigate, CapIncidentResolve, CapIncidentPostmortem,
			CapRefundSubmit, CapRefundApprove, CapRefundDecline,
			CapTicketAssign, CapTicketNote,
			CapRoleManage, CapAuditView, CapAuditVerify,
		}},
		{ID: RoleAgent, Label: "Support Agent", System: true, CreatedAt: now, UpdatedAt: now, Capabilities: []string{
			CapAlertCreate, CapAlertAcknowledge, CapAlertResolve, CapAlertDismiss,
			CapComplaintCreate, CapComplaintStart, CapComplaintResolve,
			CapIncidentCreate, CapIncidentInvestigate, CapIncidentMitigate, CapIncidentResolve,
			CapRefundSubmit,
			CapTicketAssign, CapTicketNote,
		}},
		{ID: RoleCompliance, Label: "Compliance Officer", System: true, CreatedAt: now, UpdatedAt: now, Capabilities: []string{
			CapComplaintEscalate, CapComplaintClose,
			CapDSARCreate, CapDSARVerify, CapDSARProcess, CapDSARComplete, CapDSARReject,
			CapIncidentPostmortem,
			CapRefundApprove, CapRefundDecline,
			CapTicketNote,
			CapAuditView, CapAuditVerify,
		}},
		{ID: RoleViewer, Label: "Read Only", System: true, CreatedAt: now, UpdatedAt: now, Capabilities: []string{
			CapAuditView,
		}},
	}
}

// Actor is an authenticated operator. Overrides extend the role's
// capabilities; they never subtract (subtractive overrides make auditing
// intractable, prefer a custom role).
type Actor struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	RoleID       string
	Overrides    []string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
