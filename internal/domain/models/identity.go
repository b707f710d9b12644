package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Path segment literals, in the fixed grammar order:
// subscriptions -> resourceGroups -> managementGroups -> providers.
const (
	segSubscriptions    = "subscriptions"
	segResourceGroups   = "resourceGroups"
	segManagementGroups = "managementGroups"
	segProviders        = "providers"
)

// MalformedIdentityError reports a path string that does not match the
// hierarchical identity grammar.
type MalformedIdentityError struct {
	Path   string
	Reason string
}

func (e *MalformedIdentityError) Error() string {
	return fmt.Sprintf("malformed identity path %q: %s", e.Path, e.Reason)
}

// ResourceType is the provider-qualified type name, e.g.
// "ITL.Compute/virtualMachines".
type ResourceType struct {
	Namespace string `json:"namespace"`
	Kind      string `json:"kind"`
}

// ParseResourceType splits "Namespace/kind" into a ResourceType.
func ParseResourceType(s string) (ResourceType, error) {
	ns, kind, ok := strings.Cut(s, "/")
	if !ok || ns == "" || kind == "" || strings.Contains(kind, "/") {
		return ResourceType{}, &MalformedIdentityError{Path: s, Reason: "resource type must be Namespace/kind"}
	}
	return ResourceType{Namespace: ns, Kind: kind}, nil
}

func (t ResourceType) String() string {
	return t.Namespace + "/" + t.Kind
}

// ResourceIdentity is the dual identifier of a resource: the recomputable
// hierarchical path and the once-assigned secondary lookup id.
type ResourceIdentity struct {
	Path        string `json:"path"`
	SecondaryID string `json:"secondaryId"`
}

// ParsedIdentity is the inverse image of a hierarchical path.
type ParsedIdentity struct {
	Type  ResourceType
	Name  string
	Scope ScopeContext
}

// GenerateIdentity builds the hierarchical path for (type, name) under the
// declared scope and assigns a fresh secondary id. The path is a pure
// function of its inputs; the secondary id is generated exactly once here
// and never recomputed.
//
// Parent-scoped resources extend the parent's path with /{kind}/{name}; the
// parent path must itself be well formed and belong to the same provider
// namespace.
func GenerateIdentity(resourceType ResourceType, name string, d ScopeDeclaration, c ScopeContext) (ResourceIdentity, error) {
	path, err := BuildIdentityPath(resourceType, name, d, c)
	if err != nil {
		return ResourceIdentity{}, err
	}
	return ResourceIdentity{
		Path:        path,
		SecondaryID: uuid.NewString(),
	}, nil
}

// BuildIdentityPath constructs only the hierarchical path. Used by
// GenerateIdentity and anywhere the path must be recomputed for an
// existing resource.
func BuildIdentityPath(resourceType ResourceType, name string, d ScopeDeclaration, c ScopeContext) (string, error) {
	if resourceType.Namespace == "" || resourceType.Kind == "" {
		return "", &MalformedIdentityError{Reason: "resource type namespace and kind are required"}
	}
	if name == "" {
		return "", &MalformedIdentityError{Reason: "resource name is required"}
	}
	if strings.Contains(name, "/") {
		return "", &MalformedIdentityError{Path: name, Reason: "resource name must not contain '/'"}
	}
	if err := d.ValidateContext(c); err != nil {
		return "", err
	}

	if d.Requires(ScopeParentResource) {
		parent, err := ParseIdentityPath(c.ParentResourceID)
		if err != nil {
			return "", &MalformedScopeError{Dimension: ScopeParentResource, Reason: fmt.Sprintf("parent resource id is not a valid path: %v", err)}
		}
		if !strings.EqualFold(parent.Type.Namespace, resourceType.Namespace) {
			return "", &MalformedScopeError{Dimension: ScopeParentResource, Reason: fmt.Sprintf("parent provider namespace %q does not match child namespace %q", parent.Type.Namespace, resourceType.Namespace)}
		}
		return c.ParentResourceID + "/" + resourceType.Kind + "/" + name, nil
	}

	var b strings.Builder
	if d.Requires(ScopeSubscription) {
		b.WriteString("/" + segSubscriptions + "/" + c.Subscription)
	}
	if d.Requires(ScopeResourceGroup) {
		b.WriteString("/" + segResourceGroups + "/" + c.ResourceGroup)
	}
	if d.Requires(ScopeManagementGroup) {
		b.WriteString("/" + segManagementGroups + "/" + c.ManagementGroup)
	}
	b.WriteString("/" + segProviders + "/" + resourceType.Namespace + "/" + resourceType.Kind + "/" + name)
	return b.String(), nil
}

// ParseIdentityPath is the inverse of BuildIdentityPath.
//
// Grammar: an optional prefix of at most one each of
// /subscriptions/{v}, /resourceGroups/{v}, /managementGroups/{v} in that
// order, then /providers/{ns}/{kind}/{name}, then zero or more child
// /{kind}/{name} pairs. For a child resource the returned scope context
// carries only the parent resource id (everything before the final pair).
func ParseIdentityPath(path string) (ParsedIdentity, error) {
	if path == "" || !strings.HasPrefix(path, "/") {
		return ParsedIdentity{}, &MalformedIdentityError{Path: path, Reason: "path must start with '/'"}
	}
	segs := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for _, s := range segs {
		if s == "" {
			return ParsedIdentity{}, &MalformedIdentityError{Path: path, Reason: "empty path segment"}
		}
	}

	var out ParsedIdentity
	i := 0
	take := func(literal string) (string, bool) {
		if i+1 < len(segs) && segs[i] == literal {
			v := segs[i+1]
			i += 2
			return v, true
		}
		return "", false
	}
	if v, ok := take(segSubscriptions); ok {
		out.Scope.Subscription = v
	}
	if v, ok := take(segResourceGroups); ok {
		out.Scope.ResourceGroup = v
	}
	if v, ok := take(segManagementGroups); ok {
		out.Scope.ManagementGroup = v
	}

	if i >= len(segs) || segs[i] != segProviders {
		return ParsedIdentity{}, &MalformedIdentityError{Path: path, Reason: "expected providers segment"}
	}
	if len(segs)-i < 4 {
		return ParsedIdentity{}, &MalformedIdentityError{Path: path, Reason: "providers segment requires namespace, type and name"}
	}
	out.Type = ResourceType{Namespace: segs[i+1], Kind: segs[i+2]}
	out.Name = segs[i+3]
	i += 4

	rest := segs[i:]
	if len(rest) == 0 {
		return out, nil
	}
	if len(rest)%2 != 0 {
		return ParsedIdentity{}, &MalformedIdentityError{Path: path, Reason: "child segments must come in kind/name pairs"}
	}
	// The innermost pair is the resource; the prefix is the parent identity.
	out.Type = ResourceType{Namespace: out.Type.Namespace, Kind: rest[len(rest)-2]}
	out.Name = rest[len(rest)-1]
	parentEnd := len(path) - len(rest[len(rest)-2]) - len(rest[len(rest)-1]) - 2
	out.Scope = ScopeContext{ParentResourceID: path[:parentEnd]}
	return out, nil
}
