package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/workflow-service/internal/api/dto"
	"github.com/spec-kit/workflow-service/internal/auth"
	"github.com/spec-kit/workflow-service/internal/domain"
	"github.com/spec-kit/workflow-service/internal/service"
	apperrors "github.com/spec-kit/workflow-service/pkg/util"
)

// RolesHandler manages role administration and permission resolution.
type RolesHandler struct {
	service *service.PermissionService
}

// NewRolesHandler constructs handler.
func NewRolesHandler(permissionService *service.PermissionService) *RolesHandler {
	return &RolesHandler{service: permissionService}
}

// ListRoles GET /roles.
func (h *RolesHandler) ListRoles(c *fiber.Ctx) error {
	roles, err := h.service.ListRoles(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.RoleResponse, 0, len(roles))
	for i := range roles {
		items = append(items, roleResponse(&roles[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateRole POST /roles.
func (h *RolesHandler) CreateRole(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	role, err := h.service.CreateRole(c.Context(), principal.Actor.ID, service.RoleInput{
		ID:           req.ID,
		Label:        req.Label,
		Capabilities: req.Capabilities,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": roleResponse(role)})
}

// UpdateRole PUT /roles/:id.
func (h *RolesHandler) UpdateRole(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	role, err := h.service.UpdateRole(c.Context(), principal.Actor.ID, c.Params("id"), service.RoleInput{
		Label:        req.Label,
		Capabilities: req.Capabilities,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": roleResponse(role)})
}

// DeleteRole DELETE /roles/:id.
func (h *RolesHandler) DeleteRole(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.DeleteRole(c.Context(), principal.Actor.ID, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GrantOverride POST /actors/:id/overrides.
func (h *RolesHandler) GrantOverride(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.GrantOverrideRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	actor, err := h.service.GrantOverride(c.Context(), principal.Actor.ID, c.Params("id"), req.Capability)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": actorResponse(actor)})
}

// ResolvePermissions GET /actors/:id/permissions.
func (h *RolesHandler) ResolvePermissions(c *fiber.Ctx) error {
	effective, err := h.service.ResolveEffective(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": effective})
}

// MyPermissions GET /me/permissions.
func (h *RolesHandler) MyPermissions(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	effective, err := h.service.ResolveEffective(c.Context(), principal.Actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": effective})
}

func roleResponse(role *domain.Role) dto.RoleResponse {
	return dto.RoleResponse{
		ID:           role.ID,
		Label:        role.Label,
		Capabilities: role.Capabilities,
		System:       role.System,
	}
}

func actorResponse(actor *domain.Actor) dto.ActorResponse {
	return dto.ActorResponse{
		ID:        actor.ID,
		Name:      actor.Name,
		Email:     actor.Email,
		RoleID:    actor.RoleID,
		Overrides: actor.Overrides,
		Active:    actor.Active,
	}
}
