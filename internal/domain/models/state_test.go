package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecord(t *testing.T) *ResourceRecord {
	t.Helper()
	decl := MustScopeDeclaration(ScopeSubscription, ScopeResourceGroup)
	scope := ScopeContext{Subscription: "s1", ResourceGroup: "app-rg"}
	rt := ResourceType{Namespace: "ITL.Compute", Kind: "virtualMachines"}
	identity, err := GenerateIdentity(rt, "web", decl, scope)
	require.NoError(t, err)
	return NewResourceRecord(identity, rt, "web", scope, map[string]any{"size": "small"}, time.Now(), "alice")
}

func TestTransitionTable(t *testing.T) {
	legal := []struct{ from, to ProvisioningState }{
		{StateCreating, StateSucceeded},
		{StateCreating, StateFailed},
		{StateSucceeded, StateUpdating},
		{StateSucceeded, StateDeleting},
		{StateUpdating, StateSucceeded},
		{StateUpdating, StateFailed},
		{StateFailed, StateCreating},
		{StateFailed, StateUpdating},
		{StateFailed, StateDeleting},
		{StateDeleting, StateDeleted},
	}
	for _, tr := range legal {
		assert.True(t, tr.from.CanTransition(tr.to), "%s -> %s must be legal", tr.from, tr.to)
	}

	illegal := []struct{ from, to ProvisioningState }{
		{StateCreating, StateDeleted},
		{StateCreating, StateDeleting},
		{StateCreating, StateUpdating},
		{StateSucceeded, StateDeleted},
		{StateSucceeded, StateCreating},
		{StateDeleting, StateSucceeded},
		{StateDeleted, StateCreating},
		{StateDeleted, StateDeleting},
		{StateDeleted, StateSucceeded},
		{StateDeleted, StateFailed},
	}
	for _, tr := range illegal {
		assert.False(t, tr.from.CanTransition(tr.to), "%s -> %s must be illegal", tr.from, tr.to)
	}

	assert.True(t, StateDeleted.IsTerminal())
	assert.False(t, StateFailed.IsTerminal(), "Failed is retriable, not terminal")
}

func TestEveryPathToDeletedPassesDeleting(t *testing.T) {
	for from := range map[ProvisioningState]struct{}{
		StateCreating: {}, StateSucceeded: {}, StateUpdating: {}, StateFailed: {}, StateDeleting: {},
	} {
		if from.CanTransition(StateDeleted) {
			assert.Equal(t, StateDeleting, from, "only Deleting may enter Deleted")
		}
	}
}

func TestRecordTransitionAppendsHistory(t *testing.T) {
	rec := newTestRecord(t)
	require.Equal(t, StateCreating, rec.State)
	require.Len(t, rec.History(), 1)

	require.NoError(t, rec.Transition(StateSucceeded, time.Now(), "alice"))
	assert.Equal(t, StateSucceeded, rec.State)

	history := rec.History()
	require.Len(t, history, 2)
	assert.Equal(t, StateCreating, history[0].State)
	assert.Equal(t, StateSucceeded, history[1].State)
	assert.Equal(t, "alice", history[1].Actor)
}

func TestRecordInvalidTransitionLeavesRecordUntouched(t *testing.T) {
	rec := newTestRecord(t)

	err := rec.Transition(StateDeleted, time.Now(), "alice")
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StateCreating, invalid.From)
	assert.Equal(t, StateDeleted, invalid.To)

	assert.Equal(t, StateCreating, rec.State)
	assert.Len(t, rec.History(), 1)
}

func TestMetaTouch(t *testing.T) {
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	var m Meta
	m.TouchOnCreate(now, "alice")
	assert.Equal(t, now, m.CreatedAt)
	assert.Equal(t, m.CreatedAt, m.ModifiedAt)
	assert.Equal(t, "alice", m.CreatedBy)
	assert.Equal(t, "alice", m.ModifiedBy)

	later := now.Add(time.Minute)
	m.TouchOnWrite(later, "bob")
	assert.Equal(t, now, m.CreatedAt, "createdAt is immutable")
	assert.Equal(t, "alice", m.CreatedBy, "createdBy is immutable")
	assert.Equal(t, later, m.ModifiedAt)
	assert.Equal(t, "bob", m.ModifiedBy)

	// A second TouchOnCreate must not reassign creation fields.
	m.TouchOnCreate(later.Add(time.Hour), "carol")
	assert.Equal(t, now, m.CreatedAt)
	assert.Equal(t, "alice", m.CreatedBy)
}

func TestDeepCopyIsolation(t *testing.T) {
	rec := newTestRecord(t)
	rec.Properties["tags"] = map[string]any{"env": "prod"}

	cp := rec.DeepCopy()
	cp.Properties["size"] = "large"
	cp.Properties["tags"].(map[string]any)["env"] = "dev"
	require.NoError(t, cp.Transition(StateSucceeded, time.Now(), "bob"))

	assert.Equal(t, "small", rec.Properties["size"])
	assert.Equal(t, "prod", rec.Properties["tags"].(map[string]any)["env"])
	assert.Equal(t, StateCreating, rec.State)
	assert.Len(t, rec.History(), 1)
}
