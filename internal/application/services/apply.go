package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"itl-resource-backend/internal/domain/models"
	"itl-resource-backend/internal/domain/ports"
)

// applyMaxElapsed bounds the retry window of Apply.
const applyMaxElapsed = 10 * time.Second

// Apply is the idempotent entrypoint for orchestrators that resubmit the
// same (name, scope, properties): it creates the resource, and if the name
// is already taken in that scope it updates the existing record in place.
//
// An InvalidTransitionError means another actor holds the record
// mid-transition; that is transient and retried with exponential backoff.
// Every other failure is permanent.
func Apply(ctx context.Context, registry *ProviderRegistry, typeName, name string, rawProperties map[string]any, scope models.ScopeContext, actor string) (*models.ResourceRecord, error) {
	var out *models.ResourceRecord

	op := func() error {
		rec, err := registry.Create(ctx, typeName, name, rawProperties, scope, actor)
		if ports.IsConflict(err) {
			rec, err = registry.Update(ctx, typeName, name, scope, rawProperties, actor)
		}
		if err == nil {
			out = rec
			return nil
		}
		var invalid *models.InvalidTransitionError
		if errors.As(err, &invalid) {
			return err
		}
		return backoff.Permanent(err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = applyMaxElapsed
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return out, nil
}
