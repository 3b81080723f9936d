package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/workflow-service/internal/domain"
	"github.com/spec-kit/workflow-service/internal/permission"
	"github.com/spec-kit/workflow-service/internal/repository"
	apperrors "github.com/spec-kit/workflow-service/pkg/util"
)

// PermissionService resolves effective capabilities and administers roles
// and overrides. Every role or override change lands on the compliance
// audit chain.
type PermissionService struct {
	actors   repository.ActorRepository
	roles    repository.RoleRepository
	auditLog *AuditService
	logger   *zap.Logger
	now      func() time.Time
}

// NewPermissionService constructs the service.
func NewPermissionService(actors repository.ActorRepository, roles repository.RoleRepository, auditLog *AuditService, logger *zap.Logger) *PermissionService {
	return &PermissionService{
		actors:   actors,
		roles:    roles,
		auditLog: auditLog,
		logger:   logger,
		now:      time.Now,
	}
}

// EffectivePermissions is the resolved capability view for one actor.
type EffectivePermissions struct {
	ActorID      string   `json:"actor_id"`
	RoleID       string   `json:"role_id"`
	RoleLabel    string   `json:"role_label"`
	Overrides    []string `json:"overrides"`
	Capabilities []string `json:"capabilities"`
}

// ResolveEffective computes the union of role capabilities and actor
// overrides. Loaded fresh each call; nothing is cached.
func (s *PermissionService) ResolveEffective(ctx context.Context, actorID string) (*EffectivePermissions, error) {
	actor, role, set, err := s.load(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return &EffectivePermissions{
		ActorID:      actor.ID,
		RoleID:       role.ID,
		RoleLabel:    role.Label,
		Overrides:    append([]string(nil), actor.Overrides...),
		Capabilities: set.Keys(),
	}, nil
}

func (s *PermissionService) load(ctx context.Context, actorID string) (*domain.Actor, *domain.Role, permission.CapabilitySet, error) {
	actor, err := s.actors.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, nil, apperrors.NewNotFound("actor", map[string]any{"actor_id": actorID})
		}
		return nil, nil, nil, apperrors.MapError(err)
	}
	role, err := s.roles.GetByID(ctx, actor.RoleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, nil, apperrors.NewNotFound("role", map[string]any{"role_id": actor.RoleID})
		}
		return nil, nil, nil, apperrors.MapError(err)
	}
	return actor, role, permission.Resolve(role, actor), nil
}

func (s *PermissionService) requireManager(ctx context.Context, actorID string) (*domain.Actor, *domain.Role, error) {
	actor, role, set, err := s.load(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}
	if !actor.Active {
		return nil, nil, apperrors.NewForbidden("actor is deactivated")
	}
	if !set.Has(domain.CapRoleManage) {
		return nil, nil, apperrors.NewPermissionDenied(domain.CapRoleManage)
	}
	return actor, role, nil
}

// RoleInput describes custom role creation/updates.
type RoleInput struct {
	ID           string
	Label        string
	Capabilities []string
}

// CreateRole adds a custom role.
func (s *PermissionService) CreateRole(ctx context.Context, requestingActorID string, input RoleInput) (*domain.Role, error) {
	actor, actorRole, err := s.requireManager(ctx, requestingActorID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.ID) == "" || strings.TrimSpace(input.Label) == "" {
		return nil, apperrors.NewValidationError("id and label required", nil)
	}
	if existing, err := s.roles.GetByID(ctx, input.ID); err == nil && existing != nil {
		return nil, apperrors.NewConflict("role already exists", map[string]any{"role_id": input.ID})
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	role := &domain.Role{
		ID:           strings.TrimSpace(input.ID),
		Label:        strings.TrimSpace(input.Label),
		Capabilities: dedupe(input.Capabilities),
		System:       false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.roles.Create(ctx, role); err != nil {
		return nil, apperrors.MapError(err)
	}
	if _, err := s.auditLog.Append(ctx, AuditRecord{
		Actor:        actor,
		Role:         actorRole,
		Action:       "role.create",
		ResourceType: domain.ResourceRole,
		ResourceID:   role.ID,
		NewValue:     map[string]any{"label": role.Label, "capabilities": role.Capabilities},
		Chained:      true,
		At:           now,
	}); err != nil {
		return nil, err
	}
	return role, nil
}

// UpdateRole edits a custom role. System roles are immutable.
func (s *PermissionService) UpdateRole(ctx context.Context, requestingActorID, roleID string, input RoleInput) (*domain.Role, error) {
	actor, actorRole, err := s.requireManager(ctx, requestingActorID)
	if err != nil {
		return nil, err
	}
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("role", map[string]any{"role_id": roleID})
		}
		return nil, apperrors.MapError(err)
	}
	if role.System {
		return nil, apperrors.NewConflict("system roles are immutable", map[string]any{"role_id": roleID})
	}

	old := map[string]any{"label": role.Label, "capabilities": role.Capabilities}
	if strings.TrimSpace(input.Label) != "" {
		role.Label = strings.TrimSpace(input.Label)
	}
	if input.Capabilities != nil {
		role.Capabilities = dedupe(input.Capabilities)
	}
	now := s.now().UTC().Truncate(time.Microsecond)
	role.UpdatedAt = now
	if err := s.roles.Update(ctx, role); err != nil {
		return nil, apperrors.MapError(err)
	}
	if _, err := s.auditLog.Append(ctx, AuditRecord{
		Actor:        actor,
		Role:         actorRole,
		Action:       "role.update",
		ResourceType: domain.ResourceRole,
		ResourceID:   role.ID,
		OldValue:     old,
		NewValue:     map[string]any{"label": role.Label, "capabilities": role.Capabilities},
		Chained:      true,
		At:           now,
	}); err != nil {
		return nil, err
	}
	return role, nil
}

// DeleteRole removes a custom role and reassigns its actors to the default
// role.
func (s *PermissionService) DeleteRole(ctx context.Context, requestingActorID, roleID string) error {
	actor, actorRole, err := s.requireManager(ctx, requestingActorID)
	if err != nil {
		return err
	}
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("role", map[string]any{"role_id": roleID})
		}
		return apperrors.MapError(err)
	}
	if role.System {
		return apperrors.NewConflict("system roles cannot be deleted", map[string]any{"role_id": roleID})
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	affected, err := s.actors.ListByRole(ctx, roleID)
	if err != nil {
		return apperrors.MapError(err)
	}
	for i := range affected {
		affected[i].RoleID = domain.DefaultRoleID
		affected[i].UpdatedAt = now
		if err := s.actors.Update(ctx, &affected[i]); err != nil {
			return apperrors.MapError(err)
		}
	}
	if err := s.roles.Delete(ctx, roleID); err != nil {
		return apperrors.MapError(err)
	}
	if _, err := s.auditLog.Append(ctx, AuditRecord{
		Actor:        actor,
		Role:         actorRole,
		Action:       "role.delete",
		ResourceType: domain.ResourceRole,
		ResourceID:   roleID,
		OldValue:     map[string]any{"label": role.Label, "capabilities": role.Capabilities},
		NewValue:     map[string]any{"reassigned_actors": len(affected), "reassigned_to": domain.DefaultRoleID},
		Chained:      true,
		At:           now,
	}); err != nil {
		return err
	}
	return nil
}

// ListRoles returns all roles.
func (s *PermissionService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return roles, nil
}

// GrantOverride adds a capability override to an actor. Overrides are
// additive only; there is no subtractive form.
func (s *PermissionService) GrantOverride(ctx context.Context, requestingActorID, targetActorID, capability string) (*domain.Actor, error) {
	actor, actorRole, err := s.requireManager(ctx, requestingActorID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(capability) == "" {
		return nil, apperrors.NewValidationError("capability required", nil)
	}
	target, err := s.actors.GetByID(ctx, targetActorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("actor", map[string]any{"actor_id": targetActorID})
		}
		return nil, apperrors.MapError(err)
	}
	for _, existing := range target.Overrides {
		if existing == capability {
			return target, nil
		}
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	old := append([]string(nil), target.Overrides...)
	target.Overrides = append(target.Overrides, capability)
	target.UpdatedAt = now
	if err := s.actors.Update(ctx, target); err != nil {
		return nil, apperrors.MapError(err)
	}
	if _, err := s.auditLog.Append(ctx, AuditRecord{
		Actor:        actor,
		Role:         actorRole,
		Action:       "actor.grant_override",
		ResourceType: domain.ResourceActor,
		ResourceID:   target.ID,
		OldValue:     map[string]any{"overrides": old},
		NewValue:     map[string]any{"overrides": target.Overrides},
		Chained:      true,
		At:           now,
	}); err != nil {
		return nil, err
	}
	return target, nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
