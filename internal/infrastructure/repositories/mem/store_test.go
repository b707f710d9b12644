package mem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itl-resource-backend/internal/domain/models"
)

func storeRecord(t *testing.T, name string) (*models.ResourceRecord, string) {
	t.Helper()
	decl := models.MustScopeDeclaration(models.ScopeSubscription, models.ScopeResourceGroup)
	scope := models.ScopeContext{Subscription: "s1", ResourceGroup: "app-rg"}
	rt := models.ResourceType{Namespace: "ITL.Compute", Kind: "virtualMachines"}
	identity, err := models.GenerateIdentity(rt, name, decl, scope)
	require.NoError(t, err)
	key, err := models.UniquenessKeyFor(decl, rt, name, scope)
	require.NoError(t, err)
	return models.NewResourceRecord(identity, rt, name, scope, map[string]any{"size": "small"}, time.Now(), "alice"), key
}

func TestStoreSetGetDelete(t *testing.T) {
	s := NewStore()
	defer s.Close()
	ctx := context.Background()

	rec, key := storeRecord(t, "web")
	require.NoError(t, s.Set(ctx, key, rec))

	got, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "web", got.Name)

	_, ok, err = s.Get(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Delete(ctx, key))
	_, ok, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting an absent key is a no-op.
	require.NoError(t, s.Delete(ctx, key))
}

func TestStoreSecondaryIDLookup(t *testing.T) {
	s := NewStore()
	defer s.Close()
	ctx := context.Background()

	rec, key := storeRecord(t, "web")
	require.NoError(t, s.Set(ctx, key, rec))

	got, ok, err := s.GetBySecondaryID(ctx, rec.Identity.SecondaryID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, key, mustKey(t, got))

	require.NoError(t, s.Delete(ctx, key))
	_, ok, err = s.GetBySecondaryID(ctx, rec.Identity.SecondaryID)
	require.NoError(t, err)
	assert.False(t, ok, "secondary index entry dies with the record")
}

func mustKey(t *testing.T, rec *models.ResourceRecord) string {
	t.Helper()
	decl := models.MustScopeDeclaration(models.ScopeSubscription, models.ScopeResourceGroup)
	key, err := models.UniquenessKeyFor(decl, rec.Type, rec.Name, rec.Scope)
	require.NoError(t, err)
	return key
}

func TestStoreIterateInsertionOrder(t *testing.T) {
	s := NewStore()
	defer s.Close()
	ctx := context.Background()

	names := []string{"web", "db", "cache"}
	for _, n := range names {
		rec, key := storeRecord(t, n)
		require.NoError(t, s.Set(ctx, key, rec))
	}

	// Replacing an existing key keeps its insertion position.
	rec, key := storeRecord(t, "web")
	rec.Properties["size"] = "large"
	require.NoError(t, s.Set(ctx, key, rec))

	var seen []string
	require.NoError(t, s.Iterate(ctx, func(r *models.ResourceRecord) error {
		seen = append(seen, r.Name)
		return nil
	}))
	assert.Equal(t, names, seen)
	assert.Equal(t, 3, s.Len())
}

func TestStoreReturnsCopies(t *testing.T) {
	s := NewStore()
	defer s.Close()
	ctx := context.Background()

	rec, key := storeRecord(t, "web")
	require.NoError(t, s.Set(ctx, key, rec))

	got, _, err := s.Get(ctx, key)
	require.NoError(t, err)
	got.Properties["size"] = "large"

	again, _, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "small", again.Properties["size"], "mutating a returned record must not affect the store")
}

func TestStoreClosed(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Close())
	ctx := context.Background()

	rec, key := storeRecord(t, "web")
	assert.Error(t, s.Set(ctx, key, rec))
	_, _, err := s.Get(ctx, key)
	assert.Error(t, err)
}
