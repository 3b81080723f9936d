package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/workflow-service/internal/audit"
	"github.com/spec-kit/workflow-service/internal/domain"
	"github.com/spec-kit/workflow-service/internal/repository/memory"
)

func auditActor() (*domain.Actor, *domain.Role) {
	return &domain.Actor{ID: "a-1", Name: "Dana", RoleID: "role-compliance"},
		&domain.Role{ID: "role-compliance", Label: "Compliance Officer"}
}

func record(action, resourceID string, chained bool, at time.Time) AuditRecord {
	actor, role := auditActor()
	return AuditRecord{
		Actor:        actor,
		Role:         role,
		Action:       action,
		ResourceType: domain.ResourceTicket,
		ResourceID:   resourceID,
		NewValue:     map[string]any{"status": "received"},
		Chained:      chained,
		At:           at,
	}
}

func TestAppend_GlobalSequenceAcrossChainedAndPlain(t *testing.T) {
	repo := memory.NewAuditRepository()
	svc := NewAuditService(repo, zap.NewNop())
	ctx := context.Background()
	at := testStart

	e1, err := svc.Append(ctx, record("ticket.create", "t-1", true, at))
	require.NoError(t, err)
	e2, err := svc.Append(ctx, record("ticket.acknowledge", "t-2", false, at.Add(time.Second)))
	require.NoError(t, err)
	e3, err := svc.Append(ctx, record("ticket.verify", "t-1", true, at.Add(2*time.Second)))
	require.NoError(t, err)

	assert.EqualValues(t, 1, e1.Sequence)
	assert.EqualValues(t, 2, e2.Sequence)
	assert.EqualValues(t, 3, e3.Sequence)

	// plain entries carry no hash and do not interrupt the chain
	assert.False(t, e2.Chained())
	assert.Equal(t, audit.GenesisHash, e1.PrevHash)
	assert.Equal(t, e1.Hash, e3.PrevHash)
}

func TestAppend_ActorSnapshot(t *testing.T) {
	repo := memory.NewAuditRepository()
	svc := NewAuditService(repo, zap.NewNop())

	entry, err := svc.Append(context.Background(), record("ticket.create", "t-1", false, testStart))
	require.NoError(t, err)
	assert.Equal(t, "a-1", entry.ActorID)
	assert.Equal(t, "Dana", entry.ActorName)
	assert.Equal(t, "Compliance Officer", entry.ActorRole)

	system, err := svc.Append(context.Background(), AuditRecord{
		Action: "ticket.create", ResourceType: domain.ResourceTicket, ResourceID: "t-2", At: testStart,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SystemActorID, system.ActorID)
}

func TestVerifyChain_DetectsTamper(t *testing.T) {
	repo := memory.NewAuditRepository()
	svc := NewAuditService(repo, zap.NewNop())
	ctx := context.Background()

	var target int64
	for i := 0; i < 5; i++ {
		entry, err := svc.Append(ctx, record("ticket.verify", "t-1", true, testStart.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
		if i == 2 {
			target = entry.Sequence
		}
	}

	before, err := svc.VerifyChain(ctx, 0)
	require.NoError(t, err)
	assert.True(t, before.Valid)
	assert.Equal(t, 5, before.Checked)

	require.True(t, repo.Tamper(target, func(e *domain.AuditEntry) {
		e.NewValue = map[string]any{"status": "completed"}
	}))

	after, err := svc.VerifyChain(ctx, 0)
	require.NoError(t, err)
	assert.False(t, after.Valid)
	require.NotNil(t, after.BrokenAt)
	assert.Equal(t, target, *after.BrokenAt)

	// verification bounded below the tampered entry still passes
	bounded, err := svc.VerifyChain(ctx, target-1)
	require.NoError(t, err)
	assert.True(t, bounded.Valid)
	assert.Equal(t, 2, bounded.Checked)
}

func TestAuditService_RecoversSequenceAndTailFromStore(t *testing.T) {
	repo := memory.NewAuditRepository()
	ctx := context.Background()

	first := NewAuditService(repo, zap.NewNop())
	tail, err := first.Append(ctx, record("ticket.create", "t-1", true, testStart))
	require.NoError(t, err)
	_, err = first.Append(ctx, record("ticket.acknowledge", "t-2", false, testStart.Add(time.Second)))
	require.NoError(t, err)

	// a fresh service over the same store continues the sequence and chain
	second := NewAuditService(repo, zap.NewNop())
	next, err := second.Append(ctx, record("ticket.verify", "t-1", true, testStart.Add(2*time.Second)))
	require.NoError(t, err)
	assert.EqualValues(t, 3, next.Sequence)
	assert.Equal(t, tail.Hash, next.PrevHash)

	result, err := second.VerifyChain(ctx, 0)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, 2, result.Checked)
}

func TestTrail_ReturnsOnlyResourceEntries(t *testing.T) {
	repo := memory.NewAuditRepository()
	svc := NewAuditService(repo, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Append(ctx, record("ticket.create", "t-1", true, testStart))
	require.NoError(t, err)
	_, err = svc.Append(ctx, record("ticket.create", "t-2", false, testStart))
	require.NoError(t, err)
	_, err = svc.Append(ctx, record("ticket.verify", "t-1", true, testStart))
	require.NoError(t, err)

	trail, err := svc.Trail(ctx, "t-1")
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, "ticket.create", trail[0].Action)
	assert.Equal(t, "ticket.verify", trail[1].Action)
}
