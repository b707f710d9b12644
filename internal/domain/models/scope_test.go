package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScopeDeclaration(t *testing.T) {
	tests := []struct {
		name    string
		dims    []ScopeDimension
		wantErr bool
	}{
		{"subscription+rg", []ScopeDimension{ScopeSubscription, ScopeResourceGroup}, false},
		{"global alone", []ScopeDimension{ScopeGlobal}, false},
		{"parent alone", []ScopeDimension{ScopeParentResource}, false},
		{"empty", nil, true},
		{"global combined", []ScopeDimension{ScopeGlobal, ScopeSubscription}, true},
		{"duplicate", []ScopeDimension{ScopeSubscription, ScopeSubscription}, true},
		{"unknown", []ScopeDimension{"tenant"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScopeDeclaration(tt.dims...)
			if tt.wantErr {
				var malformed *MalformedScopeError
				require.ErrorAs(t, err, &malformed)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidateContext(t *testing.T) {
	decl := MustScopeDeclaration(ScopeSubscription, ScopeResourceGroup)

	require.NoError(t, decl.ValidateContext(ScopeContext{Subscription: "s1", ResourceGroup: "rg1"}))

	err := decl.ValidateContext(ScopeContext{Subscription: "s1"})
	var malformed *MalformedScopeError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, ScopeResourceGroup, malformed.Dimension)

	// Global requires nothing, extra fields are ignored.
	global := MustScopeDeclaration(ScopeGlobal)
	require.NoError(t, global.ValidateContext(ScopeContext{}))
	require.NoError(t, global.ValidateContext(ScopeContext{Subscription: "irrelevant"}))
}

func TestUniquenessKeyNormalization(t *testing.T) {
	decl := MustScopeDeclaration(ScopeSubscription, ScopeResourceGroup)
	vm := ResourceType{Namespace: "ITL.Compute", Kind: "virtualMachines"}

	a, err := UniquenessKeyFor(decl, vm, "Web", ScopeContext{Subscription: "S1", ResourceGroup: "App-RG"})
	require.NoError(t, err)
	b, err := UniquenessKeyFor(decl, vm, "web", ScopeContext{Subscription: "s1", ResourceGroup: "app-rg"})
	require.NoError(t, err)
	assert.Equal(t, a, b, "keys are case-insensitive")

	c, err := UniquenessKeyFor(decl, vm, "web", ScopeContext{Subscription: "s1", ResourceGroup: "net-rg"})
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "different resource group yields a different key")
}

func TestUniquenessKeyGlobalIgnoresContext(t *testing.T) {
	decl := MustScopeDeclaration(ScopeGlobal)
	st := ResourceType{Namespace: "ITL.Storage", Kind: "storageAccounts"}

	a, err := UniquenessKeyFor(decl, st, "data2025", ScopeContext{})
	require.NoError(t, err)
	b, err := UniquenessKeyFor(decl, st, "data2025", ScopeContext{Subscription: "s1", ResourceGroup: "rg"})
	require.NoError(t, err)
	assert.Equal(t, a, b, "global keys carry no scope context at all")
}

func TestDescribe(t *testing.T) {
	decl := MustScopeDeclaration(ScopeSubscription, ScopeResourceGroup)
	desc := decl.Describe(ScopeContext{Subscription: "S1", ResourceGroup: "App-RG"})
	assert.Equal(t, "subscription=s1, resourceGroup=app-rg", desc)

	assert.Equal(t, "global", MustScopeDeclaration(ScopeGlobal).Describe(ScopeContext{}))
}
