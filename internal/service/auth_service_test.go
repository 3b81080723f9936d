package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/workflow-service/internal/auth"
	"github.com/spec-kit/workflow-service/internal/config"
	"github.com/spec-kit/workflow-service/internal/domain"
	"github.com/spec-kit/workflow-service/internal/repository/memory"
)

func newAuthFixture(t *testing.T) (*AuthService, *memory.ActorRepository, *AuditService) {
	t.Helper()
	actors := memory.NewActorRepository()
	audit := NewAuditService(memory.NewAuditRepository(), zap.NewNop())
	cfg := config.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.AccessTokenTTLMinutes = 30
	cfg.Auth.BcryptCost = 4
	return NewAuthService(cfg, actors, audit), actors, audit
}

func seedLoginActor(t *testing.T, actors *memory.ActorRepository, password string, active bool) {
	t.Helper()
	hashed, err := auth.HashPassword(password, 4)
	require.NoError(t, err)
	require.NoError(t, actors.Create(context.Background(), &domain.Actor{
		ID: "a-1", Name: "Asha", Email: "asha@example.com",
		PasswordHash: hashed, RoleID: domain.RoleAgent, Active: active,
	}))
}

func TestLogin(t *testing.T) {
	svc, actors, _ := newAuthFixture(t)
	seedLoginActor(t, actors, "hunter2", true)
	ctx := context.Background()

	result, err := svc.Login(ctx, "asha@example.com", "hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "a-1", result.Actor.ID)

	claims, err := svc.TokenManager().ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "a-1", claims.ActorID)

	_, err = svc.Login(ctx, "asha@example.com", "wrong")
	requireCode(t, err, "UNAUTHORIZED")

	_, err = svc.Login(ctx, "nobody@example.com", "hunter2")
	requireCode(t, err, "UNAUTHORIZED")
}

func TestLogin_DeactivatedActor(t *testing.T) {
	svc, actors, _ := newAuthFixture(t)
	seedLoginActor(t, actors, "hunter2", false)

	_, err := svc.Login(context.Background(), "asha@example.com", "hunter2")
	requireCode(t, err, "UNAUTHORIZED")
}

func TestCreateActor(t *testing.T) {
	svc, actors, auditSvc := newAuthFixture(t)
	ctx := context.Background()
	requester := &domain.Actor{ID: "admin", Name: "Root"}
	requesterRole := &domain.Role{ID: domain.RoleAdmin, Label: "Administrator"}

	created, err := svc.CreateActor(ctx, requester, requesterRole, ActorCreateInput{
		Name: "Ben", Email: "ben@example.com", Password: "s3cret",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.DefaultRoleID, created.RoleID, "blank role falls back to the default")
	assert.True(t, created.Active)
	assert.NoError(t, auth.ComparePassword(created.PasswordHash, "s3cret"))

	// login works with the stored hash
	_, err = svc.Login(ctx, "ben@example.com", "s3cret")
	require.NoError(t, err)

	// duplicate email
	_, err = svc.CreateActor(ctx, requester, requesterRole, ActorCreateInput{
		Name: "Ben Again", Email: "ben@example.com", Password: "x",
	})
	requireCode(t, err, "CONFLICT")

	_, err = svc.CreateActor(ctx, requester, requesterRole, ActorCreateInput{Name: "", Email: "e@example.com", Password: "x"})
	requireCode(t, err, "VALIDATION_FAILED")

	// provisioning is chained
	trail, err := auditSvc.Trail(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, "actor.create", trail[0].Action)
	assert.True(t, trail[0].Chained())

	_, err = actors.GetByEmail(ctx, "ben@example.com")
	require.NoError(t, err)
}
