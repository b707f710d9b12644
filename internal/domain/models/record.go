package models

import (
	"time"
)

// Meta stores the audit fields of a resource record. All timestamps are UTC.
type Meta struct {
	CreatedAt  time.Time `json:"createdAt"`
	CreatedBy  string    `json:"createdBy"`
	ModifiedAt time.Time `json:"modifiedAt"`
	ModifiedBy string    `json:"modifiedBy"`
}

// TouchOnCreate initializes the audit fields exactly once at creation.
// createdAt and modifiedAt start equal.
func (m *Meta) TouchOnCreate(now time.Time, actor string) {
	if m == nil {
		return
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now.UTC()
		m.CreatedBy = actor
	}
	m.ModifiedAt = m.CreatedAt
	m.ModifiedBy = m.CreatedBy
}

// TouchOnWrite updates the fields that change on every accepted mutation.
// createdAt/createdBy remain immutable once set.
func (m *Meta) TouchOnWrite(now time.Time, actor string) {
	if m == nil {
		return
	}
	m.ModifiedAt = now.UTC()
	m.ModifiedBy = actor
}

// ResourceRecord is the authoritative state of one resource instance,
// exclusively owned by the handler that created it.
type ResourceRecord struct {
	Identity   ResourceIdentity  `json:"identity"`
	Type       ResourceType      `json:"type"`
	Name       string            `json:"name"`
	Scope      ScopeContext      `json:"scope"`
	Properties map[string]any    `json:"properties"`
	State      ProvisioningState `json:"provisioningState"`

	// StateHistory is append-only, in insertion order.
	StateHistory []StateEntry `json:"stateHistory"`

	Meta Meta `json:"meta"`
}

// NewResourceRecord builds a record in the Creating state with its first
// history entry. The caller drives the rest of the lifecycle.
func NewResourceRecord(identity ResourceIdentity, resourceType ResourceType, name string, scope ScopeContext, properties map[string]any, now time.Time, actor string) *ResourceRecord {
	r := &ResourceRecord{
		Identity:   identity,
		Type:       resourceType,
		Name:       name,
		Scope:      scope,
		Properties: properties,
		State:      StateCreating,
		StateHistory: []StateEntry{
			{State: StateCreating, EnteredAt: now.UTC(), Actor: actor},
		},
	}
	r.Meta.TouchOnCreate(now, actor)
	return r
}

// Transition moves the record to target, appending a history entry.
// Illegal transitions are rejected with InvalidTransitionError and leave
// the record untouched.
func (r *ResourceRecord) Transition(target ProvisioningState, now time.Time, actor string) error {
	if !r.State.CanTransition(target) {
		return &InvalidTransitionError{From: r.State, To: target}
	}
	r.State = target
	r.StateHistory = append(r.StateHistory, StateEntry{
		State:     target,
		EnteredAt: now.UTC(),
		Actor:     actor,
	})
	return nil
}

// History returns a copy of the state history in insertion order.
func (r *ResourceRecord) History() []StateEntry {
	out := make([]StateEntry, len(r.StateHistory))
	copy(out, r.StateHistory)
	return out
}

// IsLive reports whether the record still holds its name: deleted records
// release the uniqueness reservation and are invisible to reads.
func (r *ResourceRecord) IsLive() bool {
	return r.State != StateDeleted
}

// DeepCopy creates an independent copy of the record.
func (r *ResourceRecord) DeepCopy() *ResourceRecord {
	if r == nil {
		return nil
	}
	cp := *r
	cp.StateHistory = r.History()
	if r.Properties != nil {
		cp.Properties = deepCopyMap(r.Properties)
	}
	return &cp
}

func deepCopyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}
