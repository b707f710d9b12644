package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itl-resource-backend/internal/application/uniqueness"
	"itl-resource-backend/internal/domain/models"
	"itl-resource-backend/internal/domain/ports"
	"itl-resource-backend/internal/infrastructure/repositories/mem"
)

func newTestRegistry(t *testing.T, opts ...RegistryOption) *ProviderRegistry {
	t.Helper()
	reg := NewProviderRegistry(opts...)
	h := NewHandler(vmType, vmDecl, mem.NewStore(), uniqueness.NewIndex(),
		WithValidator(vmSchema(t)), WithClock(newFakeClock().Now))
	reg.Register(vmType.String(), h)
	return reg
}

func TestRegistryDispatch(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	rec, err := reg.Create(ctx, vmType.String(), "web", vmProps, appRG, "alice")
	require.NoError(t, err)
	require.Equal(t, models.StateSucceeded, rec.State)

	got, err := reg.Get(ctx, vmType.String(), "web", appRG)
	require.NoError(t, err)
	assert.Equal(t, rec.Identity.Path, got.Identity.Path)

	list, err := reg.List(ctx, vmType.String(), models.ScopeContext{Subscription: "s1"})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = reg.Update(ctx, vmType.String(), "web", appRG, map[string]any{"size": "large", "image": "ubuntu-24.04"}, "alice")
	require.NoError(t, err)

	require.NoError(t, reg.Delete(ctx, vmType.String(), "web", appRG, "alice"))
	_, err = reg.Get(ctx, vmType.String(), "web", appRG)
	require.True(t, ports.IsNotFound(err))
}

func TestRegistryTypeNameIsCaseInsensitive(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := reg.Create(context.Background(), "itl.compute/virtualmachines", "web", vmProps, appRG, "alice")
	require.NoError(t, err)
}

func TestRegistryUnknownType(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := reg.Create(context.Background(), "ITL.Compute/teapots", "web", vmProps, appRG, "alice")
	var unknown *ports.UnknownResourceTypeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "ITL.Compute/teapots", unknown.Type)
}

func TestRegistryReRegisterLastWriteWins(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	// Replacement handler has no validator, so a payload the schema would
	// reject goes through: proof the second binding is live.
	replacement := NewHandler(vmType, vmDecl, mem.NewStore(), uniqueness.NewIndex(), WithClock(newFakeClock().Now))
	reg.Register(vmType.String(), replacement)

	_, err := reg.Create(ctx, vmType.String(), "web", map[string]any{"anything": true}, appRG, "alice")
	require.NoError(t, err)
}

func TestRegistryDispatchByOperation(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	rec, err := reg.Dispatch(ctx, OpCreate, vmType.String(), "web", vmProps, appRG, "alice")
	require.NoError(t, err)
	require.NotNil(t, rec)

	got, err := reg.Dispatch(ctx, OpGet, vmType.String(), "web", nil, appRG, "alice")
	require.NoError(t, err)
	assert.Equal(t, rec.Identity.Path, got.Identity.Path)

	deleted, err := reg.Dispatch(ctx, OpDelete, vmType.String(), "web", nil, appRG, "alice")
	require.NoError(t, err)
	assert.Nil(t, deleted)

	_, err = reg.Dispatch(ctx, Operation("purge"), vmType.String(), "web", nil, appRG, "alice")
	require.Error(t, err)
}

func TestRegistryPublishesEvents(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	var events []ResourceEvent
	token := reg.Subject().Subscribe(func(ev ResourceEvent) {
		events = append(events, ev)
	})
	defer reg.Subject().Unsubscribe(token)

	_, err := reg.Create(ctx, vmType.String(), "web", vmProps, appRG, "alice")
	require.NoError(t, err)
	_, err = reg.Update(ctx, vmType.String(), "web", appRG, vmProps, "alice")
	require.NoError(t, err)
	require.NoError(t, reg.Delete(ctx, vmType.String(), "web", appRG, "alice"))

	// Failed operations publish nothing.
	_, err = reg.Create(ctx, vmType.String(), "web!", vmProps, appRG, "alice")
	require.Error(t, err)

	require.Len(t, events, 3)
	assert.Equal(t, OpCreate, events[0].Op)
	assert.Equal(t, OpUpdate, events[1].Op)
	assert.Equal(t, OpDelete, events[2].Op)
	assert.Equal(t, vmType.String(), events[0].Type)
	require.NotNil(t, events[0].Record)
}

func TestRegistryRateLimit(t *testing.T) {
	reg := newTestRegistry(t, WithRateLimit(1000, 1))
	ctx := context.Background()

	// The limiter waits rather than rejects; all calls still succeed.
	for i, name := range []string{"a", "b", "c"} {
		_, err := reg.Create(ctx, vmType.String(), name, vmProps, appRG, "alice")
		require.NoError(t, err, "create %d", i)
	}
}
