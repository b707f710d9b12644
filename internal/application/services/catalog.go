package services

import (
	"itl-resource-backend/internal/application/uniqueness"
	"itl-resource-backend/internal/application/validation"
	"itl-resource-backend/internal/domain/models"
	"itl-resource-backend/internal/domain/ports"
)

// Built-in resource type names.
const (
	TypeVirtualMachines   = "ITL.Compute/virtualMachines"
	TypeDisks             = "ITL.Compute/disks"
	TypeNetworkInterfaces = "ITL.Network/networkInterfaces"
	TypeStorageAccounts   = "ITL.Storage/storageAccounts"
	TypePolicyDefinitions = "ITL.Authorization/policyDefinitions"
	TypeManagementGroups  = "ITL.Management/managementGroups"
)

// CatalogOptions tunes the built-in handlers.
type CatalogOptions struct {
	// RetainDeleted keeps deleted records for audit on every handler.
	RetainDeleted bool
	Clock         Clock
}

// RegisterBuiltins registers the provider's built-in resource types on reg,
// all backed by the same store and uniqueness index. Each scope shape the
// provider supports appears at least once: per-resource-group, global,
// per-management-group and parent-scoped types.
func RegisterBuiltins(reg *ProviderRegistry, store ports.Store, index *uniqueness.Index, opts CatalogOptions) error {
	common := func(extra ...HandlerOption) []HandlerOption {
		var hopts []HandlerOption
		if opts.RetainDeleted {
			hopts = append(hopts, WithRetainDeleted())
		}
		if opts.Clock != nil {
			hopts = append(hopts, WithClock(opts.Clock))
		}
		return append(hopts, extra...)
	}

	type entry struct {
		typeName string
		decl     models.ScopeDeclaration
		schema   *validation.Schema
	}

	vmSchema, err := validation.NewSchema(TypeVirtualMachines,
		[]validation.FieldSpec{
			{Name: "size", Required: true, Kind: validation.KindString,
				Enum: []string{"small", "medium", "large"}},
			{Name: "image", Required: true, Kind: validation.KindString, MinLength: 1},
			{Name: "adminUser", Required: true, Kind: validation.KindString, MinLength: 1, MaxLength: 32},
			{Name: "diskCount", Kind: validation.KindInt},
			{Name: "tags", Kind: validation.KindObject},
		},
		validation.CrossFieldRule{
			Expression: `!("diskCount" in self) || int(self.diskCount) <= (self.size == "large" ? 16 : 4)`,
			Message:    "diskCount exceeds the limit for the selected size",
		},
	)
	if err != nil {
		return err
	}

	diskSchema, err := validation.NewSchema(TypeDisks,
		[]validation.FieldSpec{
			{Name: "sizeGb", Required: true, Kind: validation.KindInt},
			{Name: "sku", Kind: validation.KindString, Enum: []string{"standard", "premium"}},
		},
	)
	if err != nil {
		return err
	}

	nicSchema, err := validation.NewSchema(TypeNetworkInterfaces,
		[]validation.FieldSpec{
			{Name: "subnet", Required: true, Kind: validation.KindString, MinLength: 1},
			{Name: "privateAddress", Kind: validation.KindString},
			{Name: "publicAddress", Kind: validation.KindBool},
		},
	)
	if err != nil {
		return err
	}

	// Storage account names are globally routable, hence the global scope
	// and the tight name cap.
	storageSchema, err := validation.NewSchema(TypeStorageAccounts,
		[]validation.FieldSpec{
			{Name: "tier", Required: true, Kind: validation.KindString,
				Enum: []string{"hot", "cool", "archive"}},
			{Name: "replication", Required: true, Kind: validation.KindString,
				Enum: []string{"lrs", "zrs", "grs"}},
			{Name: "httpsOnly", Kind: validation.KindBool},
		},
		validation.CrossFieldRule{
			Expression: `self.tier != "archive" || self.replication != "zrs"`,
			Message:    "archive tier does not support zone-redundant replication",
		},
	)
	if err != nil {
		return err
	}
	storageSchema.WithNameMaxLength(24)

	policySchema, err := validation.NewSchema(TypePolicyDefinitions,
		[]validation.FieldSpec{
			{Name: "effect", Required: true, Kind: validation.KindString,
				Enum: []string{"audit", "deny", "append"}},
			{Name: "description", Kind: validation.KindString, MaxLength: 512},
			{Name: "rule", Required: true, Kind: validation.KindObject},
		},
	)
	if err != nil {
		return err
	}

	mgSchema, err := validation.NewSchema(TypeManagementGroups,
		[]validation.FieldSpec{
			{Name: "displayName", Required: true, Kind: validation.KindString, MinLength: 1, MaxLength: 128},
			{Name: "parentId", Kind: validation.KindString},
		},
	)
	if err != nil {
		return err
	}

	entries := []entry{
		{TypeVirtualMachines, models.MustScopeDeclaration(models.ScopeSubscription, models.ScopeResourceGroup), vmSchema},
		{TypeDisks, models.MustScopeDeclaration(models.ScopeParentResource), diskSchema},
		{TypeNetworkInterfaces, models.MustScopeDeclaration(models.ScopeSubscription, models.ScopeResourceGroup), nicSchema},
		{TypeStorageAccounts, models.MustScopeDeclaration(models.ScopeGlobal), storageSchema},
		{TypePolicyDefinitions, models.MustScopeDeclaration(models.ScopeManagementGroup), policySchema},
		{TypeManagementGroups, models.MustScopeDeclaration(models.ScopeGlobal), mgSchema},
	}

	for _, e := range entries {
		rt, err := models.ParseResourceType(e.typeName)
		if err != nil {
			return err
		}
		reg.Register(e.typeName, NewHandler(rt, e.decl, store, index, common(WithValidator(e.schema))...))
	}
	return nil
}
