package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/workflow-service/internal/domain"
)

// TimelineRepository stores a ticket's append-only history.
type TimelineRepository interface {
	Append(ctx context.Context, entry *domain.TimelineEntry) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TimelineEntry, error)
}

type timelineRepository struct {
	pool *pgxpool.Pool
}

// NewTimelineRepository builds the postgres repository.
func NewTimelineRepository(pool *pgxpool.Pool) TimelineRepository {
	return &timelineRepository{pool: pool}
}

func (r *timelineRepository) Append(ctx context.Context, entry *domain.TimelineEntry) error {
	// per-ticket sequence; safe because ticket mutations are serialized by
	// the version check upstream
	const query = `
        INSERT INTO ticket_timeline (id, ticket_id, sequence, actor_id, action_type, content, resulting_status, created_at)
        VALUES ($1, $2, (SELECT COALESCE(MAX(sequence),0)+1 FROM ticket_timeline WHERE ticket_id=$2), $3, $4, $5, $6, $7)
        RETURNING sequence`
	return r.pool.QueryRow(ctx, query,
		entry.ID,
		entry.TicketID,
		entry.ActorID,
		entry.ActionType,
		entry.Content,
		entry.ResultingStatus,
		entry.CreatedAt,
	).Scan(&entry.Sequence)
}

func (r *timelineRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TimelineEntry, error) {
	const query = `
        SELECT id, ticket_id, sequence, actor_id, action_type, content, resulting_status, created_at
        FROM ticket_timeline WHERE ticket_id=$1 ORDER BY sequence ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TimelineEntry
	for rows.Next() {
		var entry domain.TimelineEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.Sequence,
			&entry.ActorID,
			&entry.ActionType,
			&entry.Content,
			&entry.ResultingStatus,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
