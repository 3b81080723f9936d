package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/workflow-service/internal/api/dto"
	"github.com/spec-kit/workflow-service/internal/domain"
	"github.com/spec-kit/workflow-service/internal/service"
	apperrors "github.com/spec-kit/workflow-service/pkg/util"
)

// AuditHandler exposes the audit trail and chain verification.
type AuditHandler struct {
	service *service.AuditService
}

// NewAuditHandler constructs handler.
func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{service: auditService}
}

// Trail GET /audit/:resourceID.
func (h *AuditHandler) Trail(c *fiber.Ctx) error {
	entries, err := h.service.Trail(c.Context(), c.Params("resourceID"))
	if err != nil {
		return err
	}
	items := make([]dto.AuditEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, auditEntryResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// VerifyChain GET /audit/verify. The optional up_to query bounds
// verification to chain entries with sequence <= up_to.
func (h *AuditHandler) VerifyChain(c *fiber.Ctx) error {
	var upTo int64
	if raw := c.Query("up_to"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			return apperrors.NewValidationError("up_to must be a non-negative integer", nil)
		}
		upTo = parsed
	}
	result, err := h.service.VerifyChain(c.Context(), upTo)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.VerifyChainResponse{
		Valid:    result.Valid,
		BrokenAt: result.BrokenAt,
		Checked:  result.Checked,
	}})
}

func auditEntryResponse(entry *domain.AuditEntry) dto.AuditEntryResponse {
	return dto.AuditEntryResponse{
		Sequence:     entry.Sequence,
		ActorID:      entry.ActorID,
		ActorName:    entry.ActorName,
		ActorRole:    entry.ActorRole,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		OldValue:     entry.OldValue,
		NewValue:     entry.NewValue,
		CreatedAt:    entry.CreatedAt,
		Hash:         entry.Hash,
		PrevHash:     entry.PrevHash,
	}
}
