package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/workflow-service/internal/domain"
	"github.com/spec-kit/workflow-service/internal/events"
	"github.com/spec-kit/workflow-service/internal/permission"
	"github.com/spec-kit/workflow-service/internal/repository"
	"github.com/spec-kit/workflow-service/internal/sla"
	"github.com/spec-kit/workflow-service/internal/workflow"
	apperrors "github.com/spec-kit/workflow-service/pkg/util"
)

// RefundPolicy controls refund auto-approval on submit.
type RefundPolicy struct {
	OpsThreshold   float64
	MaxAutoApprove float64
	DailyLimit     int
}

// AutoApproveLimit is the effective per-request ceiling.
func (p RefundPolicy) AutoApproveLimit() float64 {
	if p.OpsThreshold < p.MaxAutoApprove {
		return p.OpsThreshold
	}
	return p.MaxAutoApprove
}

// RefundCounter tracks how many refunds an actor auto-approved today.
type RefundCounter interface {
	CountToday(ctx context.Context, actorID string) (int, error)
	Increment(ctx context.Context, actorID string) error
}

// WorkflowService is the engine: it validates a requested transition against
// the transition table and the permission resolver, applies it to the ticket
// store under an optimistic version check, and appends to the timeline and
// audit log.
type WorkflowService struct {
	tickets      repository.TicketRepository
	timeline     repository.TimelineRepository
	actors       repository.ActorRepository
	roles        repository.RoleRepository
	auditLog     *AuditService
	policy       sla.Policy
	refundPolicy RefundPolicy
	counter      RefundCounter
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	now          func() time.Time
}

// WorkflowDependencies bundles collaborators for the engine.
type WorkflowDependencies struct {
	TicketRepo   repository.TicketRepository
	TimelineRepo repository.TimelineRepository
	ActorRepo    repository.ActorRepository
	RoleRepo     repository.RoleRepository
	AuditLog     *AuditService
	Policy       sla.Policy
	RefundPolicy RefundPolicy
	Counter      RefundCounter
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Now          func() time.Time
}

// NewWorkflowService constructs the engine.
func NewWorkflowService(deps WorkflowDependencies) *WorkflowService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &WorkflowService{
		tickets:      deps.TicketRepo,
		timeline:     deps.TimelineRepo,
		actors:       deps.ActorRepo,
		roles:        deps.RoleRepo,
		auditLog:     deps.AuditLog,
		policy:       deps.Policy,
		refundPolicy: deps.RefundPolicy,
		counter:      deps.Counter,
		dispatcher:   deps.Dispatcher,
		logger:       deps.Logger,
		now:          now,
	}
}

// TicketCreateInput describes ticket intake.
type TicketCreateInput struct {
	Kind        domain.TicketKind
	Title       string
	Description string
	Severity    domain.Severity
	// refund submissions
	Amount     *float64
	OrderTotal *float64
}

// TicketListFilter describes listing parameters.
type TicketListFilter struct {
	Kinds      []domain.TicketKind
	Statuses   []domain.TicketStatus
	AssigneeID string
	SearchTerm string
	Limit      int
	Offset     int
}

// TicketView is a ticket with its SLA fields derived at read time.
type TicketView struct {
	domain.Ticket
	Breached  bool
	Remaining *time.Duration
	Timeline  []domain.TimelineEntry
}

func (s *WorkflowService) timestamp() time.Time {
	// postgres timestamptz keeps microseconds; truncate so chain hashes
	// survive a storage round-trip
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *WorkflowService) loadActor(ctx context.Context, actorID string) (*domain.Actor, *domain.Role, permission.CapabilitySet, error) {
	actor, err := s.actors.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, nil, apperrors.NewNotFound("actor", map[string]any{"actor_id": actorID})
		}
		return nil, nil, nil, apperrors.MapError(err)
	}
	if !actor.Active {
		return nil, nil, nil, apperrors.NewForbidden("actor is deactivated")
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

// CreateTicket performs intake for any kind. Refund submissions may
// auto-approve and land directly in approved, bypassing pending_approval.
func (s *WorkflowService) CreateTicket(ctx context.Context, actorID string, input TicketCreateInput) (*TicketView, error) {
	table, ok := workflow.TableFor(input.Kind)
	if !ok {
		return nil, apperrors.NewValidationError("unsupported ticket kind", map[string]any{"kind": input.Kind})
	}
	actor, role, caps, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !caps.Has(table.CreateCapability) {
		return nil, apperrors.NewPermissionDenied(table.CreateCapability)
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}

	now := s.timestamp()
	ticket := &domain.Ticket{
		ID:          uuid.NewString(),
		Kind:        input.Kind,
		Status:      table.Initial,
		Severity:    input.Severity,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Amount:      input.Amount,
		OrderTotal:  input.OrderTotal,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
	if ticket.Severity == "" {
		ticket.Severity = domain.SeverityMedium
	}
	ticket.DueAt = s.policy.DueAt(ticket.Kind, ticket.Severity, now)

	autoApproved := false
	if input.Kind == domain.KindRefund {
		if input.Amount == nil || *input.Amount <= 0 {
			return nil, apperrors.NewValidationError("amount required", nil)
		}
		autoApproved, err = s.refundAutoApproves(ctx, actorID, *input.Amount)
		if err != nil {
			return nil, err
		}
		if autoApproved {
			ticket.Status = domain.StatusApproved
			ticket.Resolution = map[string]any{"auto_approved": true}
		}
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if autoApproved && s.counter != nil {
		if err := s.counter.Increment(ctx, actorID); err != nil {
			s.logger.Warn("refund counter increment failed", zap.Error(err))
		}
	}

	status := ticket.Status
	entry := &domain.TimelineEntry{
		ID:              uuid.NewString(),
		TicketID:        ticket.ID,
		ActorID:         actorID,
		ActionType:      domain.TimelineStatusChange,
		Content:         "created",
		ResultingStatus: &status,
		CreatedAt:       now,
	}
	if autoApproved {
		entry.Content = "created (auto-approved)"
	}
	if err := s.timeline.Append(ctx, entry); err != nil {
		return nil, apperrors.MapError(err)
	}

	newValue := map[string]any{"status": string(ticket.Status), "kind": string(ticket.Kind)}
	if ticket.Amount != nil {
		newValue["amount"] = *ticket.Amount
	}
	if _, err := s.auditLog.Append(ctx, AuditRecord{
		Actor:        actor,
		Role:         role,
		Action:       "ticket.create",
		ResourceType: domain.ResourceTicket,
		ResourceID:   ticket.ID,
		NewValue:     newValue,
		Chained:      ticket.Kind.IsComplianceKind(),
		At:           now,
	}); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  actorID,
		Payload: events.TicketCreatedPayload{
			Kind:     ticket.Kind,
			Status:   ticket.Status,
			Severity: ticket.Severity,
			Title:    ticket.Title,
			DueAt:    ticket.DueAt,
		},
	})
	return s.view(ticket, []domain.TimelineEntry{*entry}), nil
}

func (s *WorkflowService) refundAutoApproves(ctx context.Context, actorID string, amount float64) (bool, error) {
	if amount > s.refundPolicy.AutoApproveLimit() {
		return false, nil
	}
	if s.counter == nil {
		return false, nil
	}
	count, err := s.counter.CountToday(ctx, actorID)
	if err != nil {
		return false, apperrors.MapError(err)
	}
	return count < s.refundPolicy.DailyLimit, nil
}

// Transition validates and applies one state-machine edge. Validation order:
// edge existence, then capability, then required payload fields. A stale
// version surfaces as CONCURRENCY_CONFLICT; the caller re-reads and retries.
func (s *WorkflowService) Transition(ctx context.Context, ticketID, actorID string, action workflow.Action, payload map[string]any) (*TicketView, error) {
	actor, role, caps, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	table, ok := workflow.TableFor(ticket.Kind)
	if !ok {
		return nil, apperrors.NewInternalError(fmt.Errorf("no transition table for kind %q", ticket.Kind))
	}

	edge, ok := table.Resolve(ticket.Status, action)
	if !ok {
		return nil, apperrors.NewInvalidTransition(string(ticket.Kind), string(ticket.Status), string(action))
	}
	if !caps.Has(edge.Capability) {
		return nil, apperrors.NewPermissionDenied(edge.Capability)
	}
	if missing := missingFields(edge.RequiredFields, payload); len(missing) > 0 {
		return nil, apperrors.NewValidationError("required fields missing", map[string]any{"fields": missing})
	}

	now := s.timestamp()
	oldStatus := ticket.Status
	ticket.Status = edge.To
	ticket.UpdatedAt = now
	if len(payload) > 0 {
		if ticket.Resolution == nil {
			ticket.Resolution = map[string]any{}
		}
		for k, v := range payload {
			ticket.Resolution[k] = v
		}
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, mapStoreError(err, ticketID)
	}

	status := ticket.Status
	if err := s.timeline.Append(ctx, &domain.TimelineEntry{
		ID:              uuid.NewString(),
		TicketID:        ticket.ID,
		ActorID:         actorID,
		ActionType:      domain.TimelineStatusChange,
		Content:         transitionContent(action, payload),
		ResultingStatus: &status,
		CreatedAt:       now,
	}); err != nil {
		return nil, apperrors.MapError(err)
	}

	newValue := map[string]any{"status": string(ticket.Status)}
	for k, v := range payload {
		newValue[k] = v
	}
	if _, err := s.auditLog.Append(ctx, AuditRecord{
		Actor:        actor,
		Role:         role,
		Action:       "ticket." + string(action),
		ResourceType: domain.ResourceTicket,
		ResourceID:   ticket.ID,
		OldValue:     map[string]any{"status": string(oldStatus)},
		NewValue:     newValue,
		Chained:      ticket.Kind.IsComplianceKind(),
		At:           now,
	}); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketTransitioned,
		TicketID: ticket.ID,
		ActorID:  actorID,
		Payload: events.TicketTransitionedPayload{
			Action:    string(action),
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
		},
	})
	return s.view(ticket, nil), nil
}

// Assign sets the assignee without changing status. Same permission
// discipline as transitions; still appends timeline and audit entries.
func (s *WorkflowService) Assign(ctx context.Context, ticketID, assigneeID, requestingActorID string) (*TicketView, error) {
	actor, role, caps, err := s.loadActor(ctx, requestingActorID)
	if err != nil {
		return nil, err
	}
	if !caps.Has(domain.CapTicketAssign) {
		return nil, apperrors.NewPermissionDenied(domain.CapTicketAssign)
	}
	assignee, err := s.actors.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("actor", map[string]any{"actor_id": assigneeID})
		}
		return nil, apperrors.MapError(err)
	}
	if !assignee.Active {
		return nil, apperrors.NewConflict("assignee inactive", map[string]any{"actor_id": assigneeID})
	}

	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	oldAssignee := ticket.AssignedTo
	ticket.AssignedTo = &assignee.ID
	ticket.UpdatedAt = now
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, mapStoreError(err, ticketID)
	}

	if err := s.timeline.Append(ctx, &domain.TimelineEntry{
		ID:         uuid.NewString(),
		TicketID:   ticket.ID,
		ActorID:    requestingActorID,
		ActionType: domain.TimelineAssigned,
		Content:    "assigned to " + assignee.Name,
		CreatedAt:  now,
	}); err != nil {
		return nil, apperrors.MapError(err)
	}

	if _, err := s.auditLog.Append(ctx, AuditRecord{
		Actor:        actor,
		Role:         role,
		Action:       "ticket.assign",
		ResourceType: domain.ResourceTicket,
		ResourceID:   ticket.ID,
		OldValue:     map[string]any{"assigned_to": strOrNil(oldAssignee)},
		NewValue:     map[string]any{"assigned_to": assignee.ID},
		Chained:      ticket.Kind.IsComplianceKind(),
		At:           now,
	}); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		ActorID:  requestingActorID,
		Payload:  events.TicketAssignedPayload{AssigneeID: ticket.AssignedTo},
	})
	return s.view(ticket, nil), nil
}

// AddNote appends a free-text note to the ticket's timeline.
func (s *WorkflowService) AddNote(ctx context.Context, ticketID, actorID, content string) (*domain.TimelineEntry, error) {
	return s.appendSideChannel(ctx, ticketID, actorID, domain.TimelineNoteAdded, content)
}

// RecordAction appends a device_action or response_sent timeline entry.
func (s *WorkflowService) RecordAction(ctx context.Context, ticketID, actorID string, actionType domain.TimelineActionType, content string) (*domain.TimelineEntry, error) {
	if actionType != domain.TimelineDeviceAction && actionType != domain.TimelineResponseSent {
		return nil, apperrors.NewValidationError("unsupported action type", map[string]any{"action_type": actionType})
	}
	return s.appendSideChannel(ctx, ticketID, actorID, actionType, content)
}

func (s *WorkflowService) appendSideChannel(ctx context.Context, ticketID, actorID string, actionType domain.TimelineActionType, content string) (*domain.TimelineEntry, error) {
	actor, role, caps, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !caps.Has(domain.CapTicketNote) {
		return nil, apperrors.NewPermissionDenied(domain.CapTicketNote)
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.NewValidationError("content required", nil)
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	entry := &domain.TimelineEntry{
		ID:         uuid.NewString(),
		TicketID:   ticket.ID,
		ActorID:    actorID,
		ActionType: actionType,
		Content:    strings.TrimSpace(content),
		CreatedAt:  now,
	}
	if err := s.timeline.Append(ctx, entry); err != nil {
		return nil, apperrors.MapError(err)
	}

	if _, err := s.auditLog.Append(ctx, AuditRecord{
		Actor:        actor,
		Role:         role,
		Action:       "ticket." + string(actionType),
		ResourceType: domain.ResourceTicket,
		ResourceID:   ticket.ID,
		NewValue:     map[string]any{"content": entry.Content},
		Chained:      ticket.Kind.IsComplianceKind(),
		At:           now,
	}); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketNoteAdded,
		TicketID: ticket.ID,
		ActorID:  actorID,
		Payload: events.TicketNoteAddedPayload{
			ActionType: actionType,
			Preview:    stringPreview(entry.Content, 120),
		},
	})
	return entry, nil
}

// GetTicket returns the ticket with timeline and SLA fields derived now.
func (s *WorkflowService) GetTicket(ctx context.Context, ticketID string) (*TicketView, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	timeline, err := s.timeline.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.view(ticket, timeline), nil
}

// ListTickets returns filtered tickets with derived SLA fields.
func (s *WorkflowService) ListTickets(ctx context.Context, filter TicketListFilter) ([]TicketView, error) {
	repoFilter := repository.TicketFilter{
		Kinds:    filter.Kinds,
		Statuses: filter.Statuses,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}
	if strings.TrimSpace(filter.AssigneeID) != "" {
		assignee := filter.AssigneeID
		repoFilter.AssigneeID = &assignee
	}
	if strings.TrimSpace(filter.SearchTerm) != "" {
		term := filter.SearchTerm
		repoFilter.SearchTerm = &term
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	views := make([]TicketView, 0, len(tickets))
	for i := range tickets {
		views = append(views, *s.view(&tickets[i], nil))
	}
	return views, nil
}

func (s *WorkflowService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *WorkflowService) view(ticket *domain.Ticket, timeline []domain.TimelineEntry) *TicketView {
	now := s.now().UTC()
	return &TicketView{
		Ticket:    *ticket,
		Breached:  s.policy.IsBreached(ticket, now),
		Remaining: s.policy.Remaining(ticket, now),
		Timeline:  timeline,
	}
}

func (s *WorkflowService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func mapStoreError(err error, ticketID string) error {
	switch {
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.NewConcurrencyConflict(ticketID)
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	default:
		return apperrors.MapError(err)
	}
}

func missingFields(required []string, payload map[string]any) []string {
	var missing []string
	for _, field := range required {
		value, ok := payload[field]
		if !ok || value == nil {
			missing = append(missing, field)
			continue
		}
		if str, isStr := value.(string); isStr && strings.TrimSpace(str) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

func transitionContent(action workflow.Action, payload map[string]any) string {
	for _, key := range []string{"reason", "resolution", "notes"} {
		if value, ok := payload[key]; ok {
			if str, isStr := value.(string); isStr && strings.TrimSpace(str) != "" {
				return fmt.Sprintf("%s: %s", action, strings.TrimSpace(str))
			}
		}
	}
	return string(action)
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}

func strOrNil(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
