package services

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
	"k8s.io/klog/v2"

	"itl-resource-backend/internal/domain/models"
	"itl-resource-backend/internal/domain/ports"
	"itl-resource-backend/internal/patterns"
)

// Operation names the CRUD verbs the registry can dispatch.
type Operation string

const (
	OpCreate Operation = "create"
	OpGet    Operation = "get"
	OpList   Operation = "list"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// ResourceEvent is published after every successful mutation.
type ResourceEvent struct {
	Op     Operation
	Type   string
	Record *models.ResourceRecord
}

// RegistryOption configures the provider registry.
type RegistryOption func(*ProviderRegistry)

// WithRateLimit throttles dispatch to ratePerSecond with the given burst.
func WithRateLimit(ratePerSecond float64, burst int) RegistryOption {
	return func(r *ProviderRegistry) {
		r.limiter = rate.NewLimiter(rate.Limit(ratePerSecond), burst)
	}
}

// ProviderRegistry is the top-level directory mapping resource-type names
// to handlers. It holds no resource state of its own: all identity, state
// and uniqueness logic stays inside the handlers, which remain
// independently testable.
type ProviderRegistry struct {
	mu       sync.RWMutex
	handlers map[string]*Handler

	limiter *rate.Limiter
	subject *patterns.Subject[ResourceEvent]
}

// NewProviderRegistry creates an empty registry.
func NewProviderRegistry(opts ...RegistryOption) *ProviderRegistry {
	r := &ProviderRegistry{
		handlers: make(map[string]*Handler),
		subject:  patterns.NewSubject[ResourceEvent](),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subject exposes the resource-event stream for observers.
func (r *ProviderRegistry) Subject() *patterns.Subject[ResourceEvent] {
	return r.subject
}

// Register binds typeName to handler. Re-registering replaces the prior
// binding (last write wins); that is almost always a caller error, so it
// is logged, but it is not fatal.
func (r *ProviderRegistry) Register(typeName string, handler *Handler) {
	key := strings.ToLower(typeName)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[key]; exists {
		klog.Warningf("resource type %q re-registered, replacing previous handler", typeName)
	}
	r.handlers[key] = handler
}

// Handler returns the handler bound to typeName.
func (r *ProviderRegistry) Handler(typeName string) (*Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[strings.ToLower(typeName)]
	if !ok {
		return nil, &ports.UnknownResourceTypeError{Type: typeName}
	}
	return h, nil
}

// Types returns the registered type names.
func (r *ProviderRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for _, h := range r.handlers {
		out = append(out, h.Type().String())
	}
	return out
}

func (r *ProviderRegistry) throttle(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}

// Create dispatches a create to the bound handler and publishes the event.
func (r *ProviderRegistry) Create(ctx context.Context, typeName, name string, rawProperties map[string]any, scope models.ScopeContext, actor string) (*models.ResourceRecord, error) {
	if err := r.throttle(ctx); err != nil {
		return nil, err
	}
	h, err := r.Handler(typeName)
	if err != nil {
		return nil, err
	}
	rec, err := h.Create(ctx, name, rawProperties, scope, actor)
	if err != nil {
		return nil, err
	}
	r.subject.Notify(ResourceEvent{Op: OpCreate, Type: h.Type().String(), Record: rec})
	return rec, nil
}

// Get dispatches a read to the bound handler.
func (r *ProviderRegistry) Get(ctx context.Context, typeName, nameOrPath string, scope models.ScopeContext) (*models.ResourceRecord, error) {
	if err := r.throttle(ctx); err != nil {
		return nil, err
	}
	h, err := r.Handler(typeName)
	if err != nil {
		return nil, err
	}
	return h.Get(ctx, nameOrPath, scope)
}

// List dispatches a scoped list to the bound handler.
func (r *ProviderRegistry) List(ctx context.Context, typeName string, partial models.ScopeContext) ([]*models.ResourceRecord, error) {
	if err := r.throttle(ctx); err != nil {
		return nil, err
	}
	h, err := r.Handler(typeName)
	if err != nil {
		return nil, err
	}
	return h.List(ctx, partial)
}

// Update dispatches an update and publishes the event.
func (r *ProviderRegistry) Update(ctx context.Context, typeName, nameOrPath string, scope models.ScopeContext, rawProperties map[string]any, actor string) (*models.ResourceRecord, error) {
	if err := r.throttle(ctx); err != nil {
		return nil, err
	}
	h, err := r.Handler(typeName)
	if err != nil {
		return nil, err
	}
	rec, err := h.Update(ctx, nameOrPath, scope, rawProperties, actor)
	if err != nil {
		return nil, err
	}
	r.subject.Notify(ResourceEvent{Op: OpUpdate, Type: h.Type().String(), Record: rec})
	return rec, nil
}

// Dispatch routes op to the corresponding typed method. It covers the
// single-record verbs; List returns a slice and has no place here.
func (r *ProviderRegistry) Dispatch(ctx context.Context, op Operation, typeName, nameOrPath string, rawProperties map[string]any, scope models.ScopeContext, actor string) (*models.ResourceRecord, error) {
	switch op {
	case OpCreate:
		return r.Create(ctx, typeName, nameOrPath, rawProperties, scope, actor)
	case OpGet:
		return r.Get(ctx, typeName, nameOrPath, scope)
	case OpUpdate:
		return r.Update(ctx, typeName, nameOrPath, scope, rawProperties, actor)
	case OpDelete:
		return nil, r.Delete(ctx, typeName, nameOrPath, scope, actor)
	}
	return nil, errors.Errorf("unsupported operation %q", op)
}

// Delete dispatches a delete and publishes the event.
func (r *ProviderRegistry) Delete(ctx context.Context, typeName, nameOrPath string, scope models.ScopeContext, actor string) error {
	if err := r.throttle(ctx); err != nil {
		return err
	}
	h, err := r.Handler(typeName)
	if err != nil {
		return err
	}
	if err := h.Delete(ctx, nameOrPath, scope, actor); err != nil {
		return err
	}
	r.subject.Notify(ResourceEvent{Op: OpDelete, Type: h.Type().String()})
	return nil
}
