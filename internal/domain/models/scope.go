package models

import (
	"fmt"
	"strings"
)

// ScopeDimension is an axis along which resource-name uniqueness is enforced.
type ScopeDimension string

const (
	// ScopeGlobal means the name must be unique across the whole provider,
	// with no scope context at all. It cannot be combined with other dimensions.
	ScopeGlobal ScopeDimension = "global"
	// ScopeSubscription scopes uniqueness to a subscription.
	ScopeSubscription ScopeDimension = "subscription"
	// ScopeResourceGroup scopes uniqueness to a resource group.
	ScopeResourceGroup ScopeDimension = "resourceGroup"
	// ScopeManagementGroup scopes uniqueness to a management group.
	ScopeManagementGroup ScopeDimension = "managementGroup"
	// ScopeParentResource scopes uniqueness to an owning parent resource.
	ScopeParentResource ScopeDimension = "parentResource"
)

// MalformedScopeError reports a scope context that does not satisfy the
// resource type's scope declaration, or an invalid declaration.
type MalformedScopeError struct {
	Dimension ScopeDimension
	Reason    string
}

func (e *MalformedScopeError) Error() string {
	if e.Dimension == "" {
		return fmt.Sprintf("malformed scope: %s", e.Reason)
	}
	return fmt.Sprintf("malformed scope: dimension %q: %s", e.Dimension, e.Reason)
}

// ScopeDeclaration is the ordered set of scope dimensions declared once per
// resource type. Declaration order is the uniqueness-key component order.
type ScopeDeclaration struct {
	dims []ScopeDimension
}

// NewScopeDeclaration validates and builds a declaration.
// ScopeGlobal is exclusive: it cannot be combined with any other dimension.
func NewScopeDeclaration(dims ...ScopeDimension) (ScopeDeclaration, error) {
	if len(dims) == 0 {
		return ScopeDeclaration{}, &MalformedScopeError{Reason: "declaration requires at least one dimension"}
	}
	seen := make(map[ScopeDimension]bool, len(dims))
	for _, d := range dims {
		switch d {
		case ScopeGlobal, ScopeSubscription, ScopeResourceGroup, ScopeManagementGroup, ScopeParentResource:
		default:
			return ScopeDeclaration{}, &MalformedScopeError{Dimension: d, Reason: "unknown dimension"}
		}
		if seen[d] {
			return ScopeDeclaration{}, &MalformedScopeError{Dimension: d, Reason: "duplicate dimension"}
		}
		seen[d] = true
	}
	if seen[ScopeGlobal] && len(dims) > 1 {
		return ScopeDeclaration{}, &MalformedScopeError{Dimension: ScopeGlobal, Reason: "global cannot be combined with other dimensions"}
	}
	out := make([]ScopeDimension, len(dims))
	copy(out, dims)
	return ScopeDeclaration{dims: out}, nil
}

// MustScopeDeclaration is NewScopeDeclaration for statically known catalogs.
func MustScopeDeclaration(dims ...ScopeDimension) ScopeDeclaration {
	d, err := NewScopeDeclaration(dims...)
	if err != nil {
		panic(err)
	}
	return d
}

// Dimensions returns the declared dimensions in order.
func (d ScopeDeclaration) Dimensions() []ScopeDimension {
	out := make([]ScopeDimension, len(d.dims))
	copy(out, d.dims)
	return out
}

// IsGlobal reports whether the declaration is the exclusive global scope.
func (d ScopeDeclaration) IsGlobal() bool {
	return len(d.dims) == 1 && d.dims[0] == ScopeGlobal
}

// Requires reports whether the declaration contains the given dimension.
func (d ScopeDeclaration) Requires(dim ScopeDimension) bool {
	for _, x := range d.dims {
		if x == dim {
			return true
		}
	}
	return false
}

// ScopeContext carries the caller-supplied scope values for one call.
// Only the fields required by the resource type's declaration are consulted;
// extra fields are ignored, missing required fields are an error.
type ScopeContext struct {
	Subscription     string `json:"subscription,omitempty"`
	ResourceGroup    string `json:"resourceGroup,omitempty"`
	ManagementGroup  string `json:"managementGroup,omitempty"`
	ParentResourceID string `json:"parentResourceId,omitempty"`
}

// Value returns the context value for a dimension. Global has no value.
func (c ScopeContext) Value(dim ScopeDimension) string {
	switch dim {
	case ScopeSubscription:
		return c.Subscription
	case ScopeResourceGroup:
		return c.ResourceGroup
	case ScopeManagementGroup:
		return c.ManagementGroup
	case ScopeParentResource:
		return c.ParentResourceID
	}
	return ""
}

// IsEmpty reports whether no scope value is set.
func (c ScopeContext) IsEmpty() bool {
	return c == ScopeContext{}
}

// ValidateContext checks the context against the declaration.
// A required dimension with an empty value is a validation failure,
// never a silent default.
func (d ScopeDeclaration) ValidateContext(c ScopeContext) error {
	for _, dim := range d.dims {
		if dim == ScopeGlobal {
			continue
		}
		if c.Value(dim) == "" {
			return &MalformedScopeError{Dimension: dim, Reason: "required scope value is missing"}
		}
	}
	return nil
}

// Describe renders the declared slice of the context for error messages,
// e.g. "subscription=s1, resourceGroup=app-rg" or "global".
func (d ScopeDeclaration) Describe(c ScopeContext) string {
	if d.IsGlobal() {
		return "global"
	}
	parts := make([]string, 0, len(d.dims))
	for _, dim := range d.dims {
		parts = append(parts, fmt.Sprintf("%s=%s", dim, strings.ToLower(c.Value(dim))))
	}
	return strings.Join(parts, ", ")
}

// UniquenessKeyFor computes the composite key "type|name|dim=value|..." for
// the declared dimensions in declaration order. Names and scope values are
// lowercased first: ARM-style naming is case-insensitive, and two contexts
// differing only in casing must collide.
func UniquenessKeyFor(d ScopeDeclaration, resourceType ResourceType, name string, c ScopeContext) (string, error) {
	if err := d.ValidateContext(c); err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(strings.ToLower(resourceType.String()))
	b.WriteByte('|')
	b.WriteString(strings.ToLower(name))
	for _, dim := range d.dims {
		if dim == ScopeGlobal {
			continue
		}
		b.WriteByte('|')
		b.WriteString(string(dim))
		b.WriteByte('=')
		b.WriteString(strings.ToLower(c.Value(dim)))
	}
	return b.String(), nil
}
