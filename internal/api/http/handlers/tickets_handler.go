package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/workflow-service/internal/api/dto"
	"github.com/spec-kit/workflow-service/internal/auth"
	"github.com/spec-kit/workflow-service/internal/domain"
	"github.com/spec-kit/workflow-service/internal/service"
	"github.com/spec-kit/workflow-service/internal/workflow"
	apperrors "github.com/spec-kit/workflow-service/pkg/util"
)

// TicketsHandler exposes the workflow engine over HTTP.
type TicketsHandler struct {
	service *service.WorkflowService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(workflowService *service.WorkflowService) *TicketsHandler {
	return &TicketsHandler{service: workflowService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketCreateInput{
		Kind:        req.Kind,
		Title:       req.Title,
		Description: req.Description,
		Severity:    req.Severity,
		Amount:      req.Amount,
		OrderTotal:  req.OrderTotal,
	}
	view, err := h.service.CreateTicket(c.Context(), principal.Actor.ID, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketDetail(view)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := parseTicketQuery(c)
	views, err := h.service.ListTickets(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(views))
	for i := range views {
		items = append(items, ticketSummary(&views[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	view, err := h.service.GetTicket(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(view)})
}

// Transition POST /tickets/:id/transition.
func (h *TicketsHandler) Transition(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Action) == "" {
		return apperrors.NewValidationError("action required", nil)
	}
	view, err := h.service.Transition(c.Context(), c.Params("id"), principal.Actor.ID, workflow.Action(req.Action), req.Payload)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(view)})
}

// Assign POST /tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.AssigneeID) == "" {
		return apperrors.NewValidationError("assignee_id required", nil)
	}
	view, err := h.service.Assign(c.Context(), c.Params("id"), req.AssigneeID, principal.Actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(view)})
}

// AddNote POST /tickets/:id/notes.
func (h *TicketsHandler) AddNote(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.NoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	entry, err := h.service.AddNote(c.Context(), c.Params("id"), principal.Actor.ID, req.Content)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": timelineEntryResponse(entry)})
}

// RecordAction POST /tickets/:id/actions.
func (h *TicketsHandler) RecordAction(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RecordActionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	entry, err := h.service.RecordAction(c.Context(), c.Params("id"), principal.Actor.ID, domain.TimelineActionType(req.ActionType), req.Content)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": timelineEntryResponse(entry)})
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{
		AssigneeID: c.Query("assignee"),
		SearchTerm: c.Query("q"),
	}
	for _, kind := range splitCSV(c.Query("kind")) {
		filter.Kinds = append(filter.Kinds, domain.TicketKind(kind))
	}
	for _, status := range splitCSV(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(status))
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil {
		filter.Offset = offset
	}
	return filter
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func ticketSummary(view *service.TicketView) dto.TicketSummary {
	summary := dto.TicketSummary{
		ID:          view.ID,
		Kind:        view.Kind,
		Status:      view.Status,
		Severity:    view.Severity,
		Title:       view.Title,
		AssignedTo:  view.AssignedTo,
		Amount:      view.Amount,
		CreatedAt:   view.CreatedAt,
		UpdatedAt:   view.UpdatedAt,
		DueAt:       view.DueAt,
		SLABreached: view.Breached,
		Version:     view.Version,
	}
	if view.Remaining != nil {
		seconds := view.Remaining.Seconds()
		summary.SLARemaining = &seconds
	}
	return summary
}

func ticketDetail(view *service.TicketView) dto.TicketDetailResponse {
	detail := dto.TicketDetailResponse{
		TicketSummary: ticketSummary(view),
		Description:   view.Description,
		Resolution:    view.Resolution,
		OrderTotal:    view.OrderTotal,
		Timeline:      make([]dto.TimelineEntryResponse, 0, len(view.Timeline)),
	}
	for i := range view.Timeline {
		detail.Timeline = append(detail.Timeline, timelineEntryResponse(&view.Timeline[i]))
	}
	return detail
}

func timelineEntryResponse(entry *domain.TimelineEntry) dto.TimelineEntryResponse {
	return dto.TimelineEntryResponse{
		ID:              entry.ID,
		Sequence:        entry.Sequence,
		ActorID:         entry.ActorID,
		ActionType:      entry.ActionType,
		Content:         entry.Content,
		ResultingStatus: entry.ResultingStatus,
		CreatedAt:       entry.CreatedAt,
	}
}
