// Package memory provides in-process implementations of the repository
// interfaces. They back tests and DSN-less development runs; semantics
// (sentinel errors, version checks, ordering) mirror the postgres
// implementations.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/workflow-service/internal/domain"
	"github.com/spec-kit/workflow-service/internal/repository"
)

// TicketRepository is the in-memory ticket store.
type TicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]domain.Ticket
}

// NewTicketRepository builds an empty store.
func NewTicketRepository() *TicketRepository {
	return &TicketRepository{tickets: make(map[string]domain.Ticket)}
}

func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r *TicketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != ticket.Version {
		return repository.ErrVersionConflict
	}
	ticket.Version++
	r.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r *TicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	ticket := cloneTicket(stored)
	return &ticket, nil
}

func (r *TicketRepository) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.Ticket
	for _, t := range r.tickets {
		if len(filter.Kinds) > 0 && !containsKind(filter.Kinds, t.Kind) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			continue
		}
		if filter.AssigneeID != nil && (t.AssignedTo == nil || *t.AssignedTo != *filter.AssigneeID) {
			continue
		}
		if filter.SearchTerm != nil {
			term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
			if term != "" &&
				!strings.Contains(strings.ToLower(t.Title), term) &&
				!strings.Contains(strings.ToLower(t.Description), term) {
				continue
			}
		}
		result = append(result, cloneTicket(t))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(result) {
		return nil, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], nil
}

// TimelineRepository is the in-memory timeline store.
type TimelineRepository struct {
	mu      sync.RWMutex
	entries map[string][]domain.TimelineEntry
}

// NewTimelineRepository builds an empty store.
func NewTimelineRepository() *TimelineRepository {
	return &TimelineRepository{entries: make(map[string][]domain.TimelineEntry)}
}

func (r *TimelineRepository) Append(ctx context.Context, entry *domain.TimelineEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.Sequence = len(r.entries[entry.TicketID]) + 1
	r.entries[entry.TicketID] = append(r.entries[entry.TicketID], *entry)
	return nil
}

func (r *TimelineRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TimelineEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.TimelineEntry, len(r.entries[ticketID]))
	copy(out, r.entries[ticketID])
	return out, nil
}

// AuditRepository is the in-memory audit log.
type AuditRepository struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
}

// NewAuditRepository builds an empty log.
func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *AuditRepository) ListByResource(ctx context.Context, resourceID string) ([]domain.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.AuditEntry
	for _, e := range r.entries {
		if e.ResourceID == resourceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *AuditRepository) ListChained(ctx context.Context, upTo int64) ([]domain.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.AuditEntry
	for _, e := range r.entries {
		if e.Hash == "" {
			continue
		}
		if upTo > 0 && e.Sequence > upTo {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *AuditRepository) MaxSequence(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var max int64
	for _, e := range r.entries {
		if e.Sequence > max {
			max = e.Sequence
		}
	}
	return max, nil
}

func (r *AuditRepository) LatestChained(ctx context.Context) (*domain.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].Hash != "" {
			entry := r.entries[i]
			return &entry, nil
		}
	}
	return nil, nil
}

// Tamper overwrites a stored entry in place, bypassing append-only
// discipline. Test hook for chain verification.
func (r *AuditRepository) Tamper(sequence int64, mutate func(*domain.AuditEntry)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].Sequence == sequence {
			mutate(&r.entries[i])
			return true
		}
	}
	return false
}

// ActorRepository is the in-memory actor store.
type ActorRepository struct {
	mu     sync.RWMutex
	actors map[string]domain.Actor
}

// NewActorRepository builds an empty store.
func NewActorRepository() *ActorRepository {
	return &ActorRepository{actors: make(map[string]domain.Actor)}
}

func (r *ActorRepository) Create(ctx context.Context, actor *domain.Actor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actors[actor.ID] = cloneActor(*actor)
	return nil
}

func (r *ActorRepository) Update(ctx context.Context, actor *domain.Actor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.actors[actor.ID]; !ok {
		return repository.ErrNotFound
	}
	r.actors[actor.ID] = cloneActor(*actor)
	return nil
}

func (r *ActorRepository) GetByID(ctx context.Context, id string) (*domain.Actor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.actors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	actor := cloneActor(stored)
	return &actor, nil
}

func (r *ActorRepository) GetByEmail(ctx context.Context, email string) (*domain.Actor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.actors {
		if a.Email == email {
			actor := cloneActor(a)
			return &actor, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *ActorRepository) ListByRole(ctx context.Context, roleID string) ([]domain.Actor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Actor
	for _, a := range r.actors {
		if a.RoleID == roleID {
			out = append(out, cloneActor(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// RoleRepository is the in-memory role store.
type RoleRepository struct {
	mu    sync.RWMutex
	roles map[string]domain.Role
}

// NewRoleRepository builds an empty store.
func NewRoleRepository() *RoleRepository {
	return &RoleRepository{roles: make(map[string]domain.Role)}
}

func (r *RoleRepository) Create(ctx context.Context, role *domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles[role.ID] = cloneRole(*role)
	return nil
}

func (r *RoleRepository) Update(ctx context.Context, role *domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roles[role.ID]; !ok {
		return repository.ErrNotFound
	}
	r.roles[role.ID] = cloneRole(*role)
	return nil
}

func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.roles, id)
	return nil
}

func (r *RoleRepository) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.roles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	role := cloneRole(stored)
	return &role, nil
}

func (r *RoleRepository) List(ctx context.Context) ([]domain.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Role, 0, len(r.roles))
	for _, role := range r.roles {
		out = append(out, cloneRole(role))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// RefundCounter counts auto-approved refunds per actor per UTC day.
type RefundCounter struct {
	mu     sync.Mutex
	counts map[string]int
	now    func() time.Time
}

// NewRefundCounter builds an empty counter.
func NewRefundCounter() *RefundCounter {
	return &RefundCounter{counts: make(map[string]int), now: time.Now}
}

func (c *RefundCounter) key(actorID string) string {
	return actorID + ":" + c.now().UTC().Format("2006-01-02")
}

func (c *RefundCounter) CountToday(ctx context.Context, actorID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[c.key(actorID)], nil
}

func (c *RefundCounter) Increment(ctx context.Context, actorID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[c.key(actorID)]++
	return nil
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	if t.Resolution != nil {
		res := make(map[string]any, len(t.Resolution))
		for k, v := range t.Resolution {
			res[k] = v
		}
		t.Resolution = res
	}
	if t.AssignedTo != nil {
		v := *t.AssignedTo
		t.AssignedTo = &v
	}
	return t
}

func cloneActor(a domain.Actor) domain.Actor {
	a.Overrides = append([]string(nil), a.Overrides...)
	return a
}

func cloneRole(r domain.Role) domain.Role {
	r.Capabilities = append([]string(nil), r.Capabilities...)
	return r
}

func containsKind(kinds []domain.TicketKind, k domain.TicketKind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}

func containsStatus(statuses []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, status := range statuses {
		if status == s {
			return true
		}
	}
	return false
}
