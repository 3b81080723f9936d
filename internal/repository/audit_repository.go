package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/workflow-service/internal/domain"
)

// AuditRepository persists the global append-only audit log. Sequence
// numbers and chain hashes are assigned by the single-writer audit service,
// not the store.
type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
	ListByResource(ctx context.Context, resourceID string) ([]domain.AuditEntry, error)
	ListChained(ctx context.Context, upTo int64) ([]domain.AuditEntry, error)
	MaxSequence(ctx context.Context) (int64, error)
	LatestChained(ctx context.Context) (*domain.AuditEntry, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository builds the postgres repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

const auditColumns = `sequence, actor_id, actor_name, actor_role, action, resource_type, resource_id,
               old_value, new_value, created_at, hash, prev_hash`

func (r *auditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	const query = `
        INSERT INTO audit_entries (sequence, actor_id, actor_name, actor_role, action, resource_type, resource_id, old_value, new_value, created_at, hash, prev_hash)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := r.pool.Exec(ctx, query,
		entry.Sequence,
		entry.ActorID,
		entry.ActorName,
		entry.ActorRole,
		entry.Action,
		entry.ResourceType,
		entry.ResourceID,
		entry.OldValue,
		entry.NewValue,
		entry.CreatedAt,
		entry.Hash,
		entry.PrevHash,
	)
	return err
}

func (r *auditRepository) ListByResource(ctx context.Context, resourceID string) ([]domain.AuditEntry, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_entries WHERE resource_id=$1 ORDER BY sequence ASC`
	rows, err := r.pool.Query(ctx, query, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEntries(rows)
}

func (r *auditRepository) ListChained(ctx context.Context, upTo int64) ([]domain.AuditEntry, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_entries WHERE hash <> ''`
	args := []any{}
	if upTo > 0 {
		query += ` AND sequence <= $1`
		args = append(args, upTo)
	}
	query += ` ORDER BY sequence ASC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEntries(rows)
}

func (r *auditRepository) MaxSequence(ctx context.Context) (int64, error) {
	var max int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(MAX(sequence),0) FROM audit_entries`).Scan(&max)
	return max, err
}

func (r *auditRepository) LatestChained(ctx context.Context) (*domain.AuditEntry, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_entries WHERE hash <> '' ORDER BY sequence DESC LIMIT 1`
	row := r.pool.QueryRow(ctx, query)
	var entry domain.AuditEntry
	if err := scanAuditRow(row, &entry); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

type auditScanner interface {
	Scan(dest ...any) error
}

func scanAuditRow(row auditScanner, entry *domain.AuditEntry) error {
	return row.Scan(
		&entry.Sequence,
		&entry.ActorID,
		&entry.ActorName,
		&entry.ActorRole,
		&entry.Action,
		&entry.ResourceType,
		&entry.ResourceID,
		&entry.OldValue,
		&entry.NewValue,
		&entry.CreatedAt,
		&entry.Hash,
		&entry.PrevHash,
	)
}

func scanAuditEntries(rows pgx.Rows) ([]domain.AuditEntry, error) {
	var result []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		if err := scanAuditRow(rows, &entry); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
