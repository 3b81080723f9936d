package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/workflow-service/internal/domain"
)

func chainedEntries(t *testing.T, n int) []domain.AuditEntry {
	t.Helper()
	entries := make([]domain.AuditEntry, 0, n)
	prev := GenesisHash
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		e := domain.AuditEntry{
			Sequence:     int64(i + 1),
			ActorID:      "a-1",
			ActorName:    "Dana",
			ActorRole:    "role-compliance",
			Action:       "ticket.verify",
			ResourceType: domain.ResourceTicket,
			ResourceID:   "t-1",
			OldValue:     map[string]any{"status": "received"},
			NewValue:     map[string]any{"status": "verifying"},
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
			PrevHash:     prev,
		}
		e.Hash = ComputeHash(&e)
		prev = e.Hash
		entries = append(entries, e)
	}
	return entries
}

func TestComputeHash_Deterministic(t *testing.T) {
	entries := chainedEntries(t, 1)
	e := entries[0]
	assert.Equal(t, ComputeHash(&e), ComputeHash(&e))
	assert.Len(t, e.Hash, 64)
}

func TestComputeHash_SensitiveToContentAndPrevHash(t *testing.T) {
	entries := chainedEntries(t, 1)
	original := entries[0]

	mutated := original
	mutated.Action = "ticket.reject"
	assert.NotEqual(t, ComputeHash(&original), ComputeHash(&mutated))

	relinked := original
	relinked.PrevHash = "deadbeef"
	assert.NotEqual(t, ComputeHash(&original), ComputeHash(&relinked))
}

func TestVerify_EmptyChainIsValid(t *testing.T) {
	result := Verify(nil)
	assert.True(t, result.Valid)
	assert.Nil(t, result.BrokenAt)
	assert.Zero(t, result.Checked)
}

func TestVerify_IntactChain(t *testing.T) {
	entries := chainedEntries(t, 5)
	result := Verify(entries)
	assert.True(t, result.Valid)
	assert.Nil(t, result.BrokenAt)
	assert.Equal(t, 5, result.Checked)
}

func TestVerify_SkipsUnchainedEntries(t *testing.T) {
	entries := chainedEntries(t, 3)
	mixed := []domain.AuditEntry{entries[0]}
	mixed = append(mixed, domain.AuditEntry{
		Sequence: 99, ActorID: "a-2", Action: "ticket.acknowledge",
		ResourceType: domain.ResourceTicket, ResourceID: "t-9",
		CreatedAt: time.Now().UTC(),
	})
	mixed = append(mixed, entries[1], entries[2])

	result := Verify(mixed)
	assert.True(t, result.Valid)
	assert.Equal(t, 3, result.Checked)
}

func TestVerify_DetectsTamperedPayload(t *testing.T) {
	entries := chainedEntries(t, 5)
	entries[2].NewValue = map[string]any{"status": "completed"}

	result := Verify(entries)
	assert.False(t, result.Valid)
	require.NotNil(t, result.BrokenAt)
	assert.Equal(t, int64(3), *result.BrokenAt)
}

func TestVerify_DetectsBrokenLink(t *testing.T) {
	entries := chainedEntries(t, 4)
	entries[1].PrevHash = GenesisHash // fork back to genesis

	result := Verify(entries)
	assert.False(t, result.Valid)
	require.NotNil(t, result.BrokenAt)
	assert.Equal(t, int64(2), *result.BrokenAt)
}

func TestVerify_TailTamperReportsTail(t *testing.T) {
	entries := chainedEntries(t, 4)
	entries[3].Hash = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

	result := Verify(entries)
	assert.False(t, result.Valid)
	require.NotNil(t, result.BrokenAt)
	assert.Equal(t, int64(4), *result.BrokenAt)
}
