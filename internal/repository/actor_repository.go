package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/workflow-service/internal/domain"
)

// ActorRepository encapsulates actor persistence.
type ActorRepository interface {
	Create(ctx context.Context, actor *domain.Actor) error
	Update(ctx context.Context, actor *domain.Actor) error
	GetByID(ctx context.Context, id string) (*domain.Actor, error)
	GetByEmail(ctx context.Context, email string) (*domain.Actor, error)
	ListByRole(ctx context.Context, roleID string) ([]domain.Actor, error)
}

type actorRepository struct {
	pool *pgxpool.Pool
}

// NewActorRepository instantiates the postgres repository.
func NewActorRepository(pool *pgxpool.Pool) ActorRepository {
	return &actorRepository{pool: pool}
}

const actorColumns = `id, name, email, password_hash, role_id, overrides, active, created_at, updated_at`

func (r *actorRepository) Create(ctx context.Context, actor *domain.Actor) error {
	const query = `
        INSERT INTO actors (id, name, email, password_hash, role_id, overrides, active, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := r.pool.Exec(ctx, query,
		actor.ID,
		actor.Name,
		actor.Email,
		actor.PasswordHash,
		actor.RoleID,
		actor.Overrides,
		actor.Active,
		actor.CreatedAt,
		actor.UpdatedAt,
	)
	return err
}

func (r *actorRepository) Update(ctx context.Context, actor *domain.Actor) error {
	const query = `
        UPDATE actors SET name=$1, email=$2, password_hash=$3, role_id=$4, overrides=$5, active=$6, updated_at=$7
        WHERE id=$8`
	cmd, err := r.pool.Exec(ctx, query,
		actor.Name,
		actor.Email,
		actor.PasswordHash,
		actor.RoleID,
		actor.Overrides,
		actor.Active,
		actor.UpdatedAt,
		actor.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *actorRepository) GetByID(ctx context.Context, id string) (*domain.Actor, error) {
	return r.fetchSingle(ctx, `SELECT `+actorColumns+` FROM actors WHERE id=$1`, id)
}

func (r *actorRepository) GetByEmail(ctx context.Context, email string) (*domain.Actor, error) {
	return r.fetchSingle(ctx, `SELECT `+actorColumns+` FROM actors WHERE email=$1`, email)
}

func (r *actorRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Actor, error) {
	var actor domain.Actor
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&actor.ID,
		&actor.Name,
		&actor.Email,
		&actor.PasswordHash,
		&actor.RoleID,
		&actor.Overrides,
		&actor.Active,
		&actor.CreatedAt,
		&actor.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &actor, nil
}

func (r *actorRepository) ListByRole(ctx context.Context, roleID string) ([]domain.Actor, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+actorColumns+` FROM actors WHERE role_id=$1 ORDER BY created_at ASC`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Actor
	for rows.Next() {
		var actor domain.Actor
		if err := rows.Scan(
			&actor.ID,
			&actor.Name,
			&actor.Email,
			&actor.PasswordHash,
			&actor.RoleID,
			&actor.Overrides,
			&actor.Active,
			&actor.CreatedAt,
			&actor.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, actor)
	}
	return result, rows.Err()
}
