package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"itl-resource-backend/internal/application/uniqueness"
	"itl-resource-backend/internal/domain/models"
	"itl-resource-backend/internal/domain/ports"
)

// Validator is the validation capability of a handler: a pure check of the
// resource name contract and of the raw property payload.
type Validator interface {
	ValidateName(name string) error
	ValidateProperties(raw map[string]any) error
}

// Clock supplies timestamps; injectable for tests.
type Clock func() time.Time

// HandlerOption configures optional handler capabilities.
type HandlerOption func(*Handler)

// WithValidator attaches the validation capability.
func WithValidator(v Validator) HandlerOption {
	return func(h *Handler) { h.validator = v }
}

// WithClock replaces the UTC wall clock.
func WithClock(c Clock) HandlerOption {
	return func(h *Handler) { h.clock = c }
}

// WithRetainDeleted keeps deleted records in the store for audit. Retained
// records are invisible to Get/List and never hold the uniqueness key.
func WithRetainDeleted() HandlerOption {
	return func(h *Handler) { h.retainDeleted = true }
}

// Handler is the unit of behavior bound to one resource type. It composes
// independent capabilities (validation, provisioning-state tracking,
// audit timestamps, uniqueness scoping) around the type's scope
// declaration; the execution order is the fixed pipeline
// validate -> identity -> reserve -> state -> persist.
type Handler struct {
	resourceType models.ResourceType
	decl         models.ScopeDeclaration

	store ports.Store
	index *uniqueness.Index

	validator     Validator
	clock         Clock
	retainDeleted bool

	// locks serializes mutations per record; distinct records never contend.
	locks keyedMutex
}

// NewHandler builds a handler for resourceType with the given scope
// declaration over the injected store and uniqueness index.
func NewHandler(resourceType models.ResourceType, decl models.ScopeDeclaration, store ports.Store, index *uniqueness.Index, opts ...HandlerOption) *Handler {
	h := &Handler{
		resourceType: resourceType,
		decl:         decl,
		store:        store,
		index:        index,
		clock:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Type returns the handled resource type.
func (h *Handler) Type() models.ResourceType {
	return h.resourceType
}

// Declaration returns the type's scope declaration.
func (h *Handler) Declaration() models.ScopeDeclaration {
	return h.decl
}

// Create validates, reserves and persists a new resource. On any failure
// after the reservation the key is released again: no orphaned identity,
// reservation or state entry survives a failed create.
func (h *Handler) Create(ctx context.Context, name string, rawProperties map[string]any, scope models.ScopeContext, actor string) (*models.ResourceRecord, error) {
	if h.validator != nil {
		if err := h.validator.ValidateName(name); err != nil {
			return nil, err
		}
		if err := h.validator.ValidateProperties(rawProperties); err != nil {
			return nil, err
		}
	}

	key, err := models.UniquenessKeyFor(h.decl, h.resourceType, name, scope)
	if err != nil {
		return nil, err
	}

	unlock := h.locks.lock(key)
	defer unlock()

	identity, err := models.GenerateIdentity(h.resourceType, name, h.decl, scope)
	if err != nil {
		return nil, err
	}

	if err := h.index.CheckAndReserve(key, h.resourceType.String(), name, h.decl.Describe(scope)); err != nil {
		klog.V(2).Infof("create %s %q rejected: %v", h.resourceType, name, err)
		return nil, err
	}

	now := h.clock()
	rec := models.NewResourceRecord(identity, h.resourceType, name, scope, rawProperties, now, actor)
	if err := rec.Transition(models.StateSucceeded, h.clock(), actor); err != nil {
		h.index.Release(key)
		return nil, err
	}
	if err := h.store.Set(ctx, key, rec); err != nil {
		h.index.Release(key)
		return nil, errors.Wrapf(err, "persist %s %q", h.resourceType, name)
	}

	klog.V(2).Infof("created %s %s", h.resourceType, identity.Path)
	return rec, nil
}

// Update re-validates the properties and replaces them on the live record,
// driving Succeeded -> Updating -> Succeeded. The name is immutable after
// creation, so uniqueness is not re-checked; createdAt/createdBy never
// change.
func (h *Handler) Update(ctx context.Context, nameOrPath string, scope models.ScopeContext, rawProperties map[string]any, actor string) (*models.ResourceRecord, error) {
	name, scope, err := h.resolve(nameOrPath, scope)
	if err != nil {
		return nil, err
	}
	if h.validator != nil {
		if err := h.validator.ValidateProperties(rawProperties); err != nil {
			return nil, err
		}
	}

	key, err := models.UniquenessKeyFor(h.decl, h.resourceType, name, scope)
	if err != nil {
		return nil, err
	}

	unlock := h.locks.lock(key)
	defer unlock()

	rec, ok, err := h.store.Get(ctx, key)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s %q", h.resourceType, name)
	}
	if !ok || !rec.IsLive() {
		return nil, h.notFound(name, scope)
	}

	if err := rec.Transition(models.StateUpdating, h.clock(), actor); err != nil {
		return nil, err
	}
	rec.Properties = rawProperties
	rec.Meta.TouchOnWrite(h.clock(), actor)
	if err := rec.Transition(models.StateSucceeded, h.clock(), actor); err != nil {
		return nil, err
	}
	if err := h.store.Set(ctx, key, rec); err != nil {
		return nil, errors.Wrapf(err, "persist %s %q", h.resourceType, name)
	}

	klog.V(2).Infof("updated %s %s", h.resourceType, rec.Identity.Path)
	return rec, nil
}

// Delete drives the record through Deleting -> Deleted and releases its
// uniqueness reservation, freeing the name for reuse within the scope.
// Deleting an absent resource is a NotFoundError; idempotent-delete
// semantics belong to the caller.
func (h *Handler) Delete(ctx context.Context, nameOrPath string, scope models.ScopeContext, actor string) error {
	name, scope, err := h.resolve(nameOrPath, scope)
	if err != nil {
		return err
	}

	key, err := models.UniquenessKeyFor(h.decl, h.resourceType, name, scope)
	if err != nil {
		return err
	}

	unlock := h.locks.lock(key)
	defer unlock()

	rec, ok, err := h.store.Get(ctx, key)
	if err != nil {
		return errors.Wrapf(err, "load %s %q", h.resourceType, name)
	}
	if !ok || !rec.IsLive() {
		return h.notFound(name, scope)
	}

	if err := rec.Transition(models.StateDeleting, h.clock(), actor); err != nil {
		return err
	}
	if err := rec.Transition(models.StateDeleted, h.clock(), actor); err != nil {
		return err
	}
	rec.Meta.TouchOnWrite(h.clock(), actor)

	if h.retainDeleted {
		if err := h.store.Set(ctx, key, rec); err != nil {
			return errors.Wrapf(err, "retain deleted %s %q", h.resourceType, name)
		}
	} else {
		if err := h.store.Delete(ctx, key); err != nil {
			return errors.Wrapf(err, "remove %s %q", h.resourceType, name)
		}
	}
	h.index.Release(key)

	klog.V(2).Infof("deleted %s %s", h.resourceType, rec.Identity.Path)
	return nil
}

// Get returns the live record for (name, scope).
func (h *Handler) Get(ctx context.Context, nameOrPath string, scope models.ScopeContext) (*models.ResourceRecord, error) {
	name, scope, err := h.resolve(nameOrPath, scope)
	if err != nil {
		return nil, err
	}
	key, err := models.UniquenessKeyFor(h.decl, h.resourceType, name, scope)
	if err != nil {
		return nil, err
	}
	rec, ok, err := h.store.Get(ctx, key)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s %q", h.resourceType, name)
	}
	if !ok || !rec.IsLive() {
		return nil, h.notFound(name, scope)
	}
	return rec, nil
}

// GetBySecondaryID returns the live record carrying secondaryID, which must
// belong to this handler's type.
func (h *Handler) GetBySecondaryID(ctx context.Context, secondaryID string) (*models.ResourceRecord, error) {
	rec, ok, err := h.store.GetBySecondaryID(ctx, secondaryID)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s by id %q", h.resourceType, secondaryID)
	}
	if !ok || !rec.IsLive() || rec.Type != h.resourceType {
		return nil, &ports.NotFoundError{Type: h.resourceType.String(), Name: secondaryID}
	}
	return rec, nil
}

// List returns all live records of this type whose scope context is a
// superset of the supplied partial context (empty fields match anything),
// in insertion order. Comparison is case-insensitive.
func (h *Handler) List(ctx context.Context, partial models.ScopeContext) ([]*models.ResourceRecord, error) {
	var out []*models.ResourceRecord
	err := h.store.Iterate(ctx, func(rec *models.ResourceRecord) error {
		if rec.Type != h.resourceType || !rec.IsLive() {
			return nil
		}
		if !h.scopeMatches(partial, rec.Scope) {
			return nil
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", h.resourceType)
	}
	return out, nil
}

func (h *Handler) scopeMatches(partial, actual models.ScopeContext) bool {
	for _, dim := range h.decl.Dimensions() {
		if dim == models.ScopeGlobal {
			continue
		}
		want := partial.Value(dim)
		if want == "" {
			continue
		}
		if !strings.EqualFold(want, actual.Value(dim)) {
			return false
		}
	}
	return true
}

// resolve accepts either a bare resource name with its scope context, or a
// full hierarchical path (leading '/') from which name and scope are
// recovered.
func (h *Handler) resolve(nameOrPath string, scope models.ScopeContext) (string, models.ScopeContext, error) {
	if !strings.HasPrefix(nameOrPath, "/") {
		return nameOrPath, scope, nil
	}
	parsed, err := models.ParseIdentityPath(nameOrPath)
	if err != nil {
		return "", models.ScopeContext{}, err
	}
	if !strings.EqualFold(parsed.Type.String(), h.resourceType.String()) {
		return "", models.ScopeContext{}, &models.MalformedIdentityError{
			Path:   nameOrPath,
			Reason: "path resource type " + parsed.Type.String() + " does not match handler type " + h.resourceType.String(),
		}
	}
	return parsed.Name, parsed.Scope, nil
}

func (h *Handler) notFound(name string, scope models.ScopeContext) error {
	return &ports.NotFoundError{
		Type:  h.resourceType.String(),
		Name:  name,
		Scope: h.decl.Describe(scope),
	}
}

// keyedMutex hands out one mutex per key. Entries are kept for the life of
// the handler; the key space is bounded by the live resource count.
type keyedMutex struct {
	m sync.Map
}

func (k *keyedMutex) lock(key string) func() {
	v, _ := k.m.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
