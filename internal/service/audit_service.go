package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/workflow-service/internal/audit"
	"github.com/spec-kit/workflow-service/internal/domain"
	"github.com/spec-kit/workflow-service/internal/repository"
	apperrors "github.com/spec-kit/workflow-service/pkg/util"
)

// AuditService owns the global audit sequence and the chain tail. Appends
// are fully serialized process-wide: the chain's correctness depends on
// strictly ordered, non-interleaved hash computation, unlike ticket
// mutations which are serialized only per ticket.
type AuditService struct {
	repo   repository.AuditRepository
	logger *zap.Logger

	mu     sync.Mutex
	loaded bool
	seq    int64
	tail   string
}

// NewAuditService constructs the service. Sequence and tail are recovered
// from the store on first append.
func NewAuditService(repo repository.AuditRepository, logger *zap.Logger) *AuditService {
	return &AuditService{repo: repo, logger: logger}
}

// AuditRecord is the append input. Actor and Role are snapshots of who acted;
// nil means the engine itself. Chained marks compliance-grade resources.
type AuditRecord struct {
	Actor        *domain.Actor
	Role         *domain.Role
	Action       string
	ResourceType string
	ResourceID   string
	OldValue     map[string]any
	NewValue     map[string]any
	Chained      bool
	At           time.Time
}

func (s *AuditService) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	max, err := s.repo.MaxSequence(ctx)
	if err != nil {
		return err
	}
	s.seq = max
	s.tail = audit.GenesisHash
	latest, err := s.repo.LatestChained(ctx)
	if err != nil {
		return err
	}
	if latest != nil {
		s.tail = latest.Hash
	}
	s.loaded = true
	return nil
}

// Append assigns the next global sequence number, hashes the entry into the
// chain when chained, and persists it.
func (s *AuditService) Append(ctx context.Context, rec AuditRecord) (*domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, apperrors.MapError(err)
	}

	entry := &domain.AuditEntry{
		Sequence:     s.seq + 1,
		ActorID:      domain.SystemActorID,
		ActorName:    domain.SystemActorID,
		ActorRole:    domain.SystemActorID,
		Action:       rec.Action,
		ResourceType: rec.ResourceType,
		ResourceID:   rec.ResourceID,
		OldValue:     rec.OldValue,
		NewValue:     rec.NewValue,
		CreatedAt:    rec.At,
	}
	if rec.Actor != nil {
		entry.ActorID = rec.Actor.ID
		entry.ActorName = rec.Actor.Name
	}
	if rec.Role != nil {
		entry.ActorRole = rec.Role.Label
	}
	if rec.Chained {
		entry.PrevHash = s.tail
		entry.Hash = audit.ComputeHash(entry)
	}

	if err := s.repo.Append(ctx, entry); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.seq = entry.Sequence
	if rec.Chained {
		s.tail = entry.Hash
	}
	return entry, nil
}

// Trail returns the audit entries for a resource in sequence order.
func (s *AuditService) Trail(ctx context.Context, resourceID string) ([]domain.AuditEntry, error) {
	entries, err := s.repo.ListByResource(ctx, resourceID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// VerifyChain recomputes the hash chain from genesis through upTo (0 means
// the whole chain) and reports the first divergence. A broken chain is a
// compliance incident to escalate, never something to repair here.
func (s *AuditService) VerifyChain(ctx context.Context, upTo int64) (audit.VerifyResult, error) {
	entries, err := s.repo.ListChained(ctx, upTo)
	if err != nil {
		return audit.VerifyResult{}, apperrors.MapError(err)
	}
	result := audit.Verify(entries)
	if !result.Valid && s.logger != nil {
		s.logger.Error("audit chain verification failed",
			zap.Int64p("broken_at", result.BrokenAt),
			zap.Int("checked", result.Checked))
	}
	return result, nil
}
