package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/workflow-service/internal/auth"
	"github.com/spec-kit/workflow-service/internal/config"
	"github.com/spec-kit/workflow-service/internal/domain"
	"github.com/spec-kit/workflow-service/internal/repository"
	apperrors "github.com/spec-kit/workflow-service/pkg/util"
)

// AuthService authenticates actors, issues access tokens, and provisions
// new actors.
type AuthService struct {
	actors     repository.ActorRepository
	tokens     *auth.TokenManager
	auditLog   *AuditService
	bcryptCost int
	now        func() time.Time
}

// NewAuthService constructs the service.
func NewAuthService(cfg config.Config, actors repository.ActorRepository, auditLog *AuditService) *AuthService {
	return &AuthService{
		actors:     actors,
		tokens:     auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		auditLog:   auditLog,
		bcryptCost: cfg.Auth.BcryptCost,
		now:        time.Now,
	}
}

// TokenManager exposes the manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// LoginResult is the issued token plus the authenticated actor.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Actor     *domain.Actor
}

// Login verifies credentials and issues a JWT for the actor.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	actor, err := s.actors.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if !actor.Active {
		return nil, apperrors.NewUnauthorized("actor is deactivated")
	}
	if err := auth.ComparePassword(actor.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(actor.ID, actor.RoleID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Actor: actor}, nil
}

// ActorCreateInput describes actor provisioning.
type ActorCreateInput struct {
	ID       string
	Name     string
	Email    string
	Password string
	RoleID   string
}

// CreateActor provisions an actor with a hashed password. The caller's
// capability is checked at the route; requester and requesterRole are the
// audit snapshot. Actor admin is chained alongside role changes.
func (s *AuthService) CreateActor(ctx context.Context, requester *domain.Actor, requesterRole *domain.Role, input ActorCreateInput) (*domain.Actor, error) {
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Email) == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("name, email and password required", nil)
	}
	if strings.TrimSpace(input.RoleID) == "" {
		input.RoleID = domain.DefaultRoleID
	}
	if existing, err := s.actors.GetByEmail(ctx, input.Email); err == nil && existing != nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": input.Email})
	}

	hashed, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	now := s.now().UTC().Truncate(time.Microsecond)
	actor := &domain.Actor{
		ID:           strings.TrimSpace(input.ID),
		Name:         strings.TrimSpace(input.Name),
		Email:        strings.TrimSpace(input.Email),
		PasswordHash: hashed,
		RoleID:       input.RoleID,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if actor.ID == "" {
		actor.ID = uuid.NewString()
	}
	if err := s.actors.Create(ctx, actor); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.auditLog != nil {
		if _, err := s.auditLog.Append(ctx, AuditRecord{
			Actor:        requester,
			Role:         requesterRole,
			Action:       "actor.create",
			ResourceType: domain.ResourceActor,
			ResourceID:   actor.ID,
			NewValue:     map[string]any{"name": actor.Name, "email": actor.Email, "role_id": actor.RoleID},
			Chained:      true,
			At:           now,
		}); err != nil {
			return nil, err
		}
	}
	return actor, nil
}
