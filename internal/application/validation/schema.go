// Package validation evaluates declarative property schemas for resource
// types. Validation is a pure function from raw input to an error list:
// field constraints run in declaration order, then cross-field rules, so
// the first reported violation is deterministic.
package validation

import (
	"fmt"

	utilvalidation "k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"itl-resource-backend/internal/domain/ports"
)

// FieldKind is the expected shape of a property value.
type FieldKind string

const (
	KindString     FieldKind = "string"
	KindInt        FieldKind = "int"
	KindBool       FieldKind = "bool"
	KindStringList FieldKind = "stringList"
	KindObject     FieldKind = "object"
)

// FieldSpec declares the constraint set for one property field.
// Constraints are checked in struct order: presence, kind, enum, length.
type FieldSpec struct {
	Name      string
	Required  bool
	Kind      FieldKind
	Enum      []string
	MinLength int
	MaxLength int
	// DNS1123 restricts string values to DNS-1123 subdomain charset,
	// for fields that become externally routable names.
	DNS1123 bool
}

// CrossFieldRule is a CEL predicate over the whole property map, bound as
// `self`. The rule passes when the expression evaluates to true.
type CrossFieldRule struct {
	Expression string
	Message    string
}

// Schema is the compiled validation contract of one resource type.
type Schema struct {
	typeName      string
	fields        []FieldSpec
	rules         []compiledRule
	nameMaxLength int
}

// NewSchema compiles the schema. Bad CEL expressions fail here, at
// handler-construction time, never at request time.
func NewSchema(typeName string, fields []FieldSpec, rules ...CrossFieldRule) (*Schema, error) {
	compiled, err := compileRules(rules)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", typeName, err)
	}
	return &Schema{
		typeName: typeName,
		fields:   fields,
		rules:    compiled,
	}, nil
}

// MustSchema is NewSchema for statically known catalogs.
func MustSchema(typeName string, fields []FieldSpec, rules ...CrossFieldRule) *Schema {
	s, err := NewSchema(typeName, fields, rules...)
	if err != nil {
		panic(err)
	}
	return s
}

// TypeName returns the resource type this schema validates.
func (s *Schema) TypeName() string {
	return s.typeName
}

// WithNameMaxLength caps the resource name length below the DNS-1123
// limit (storage-style names are much shorter than 253 characters).
func (s *Schema) WithNameMaxLength(n int) *Schema {
	s.nameMaxLength = n
	return s
}

// ValidateName checks the resource name against the shared charset contract
// and the schema's length cap.
func (s *Schema) ValidateName(name string) error {
	return ValidateResourceName(name, s.nameMaxLength)
}

// ValidateProperties checks raw against the declared fields and rules.
// A nil return means the input is valid; otherwise the ValidationError
// carries the first violation and the full cause list.
func (s *Schema) ValidateProperties(raw map[string]any) error {
	allErrs := field.ErrorList{}
	propsPath := field.NewPath("properties")

	for _, f := range s.fields {
		allErrs = append(allErrs, validateField(f, raw, propsPath.Child(f.Name))...)
	}

	for _, r := range s.rules {
		ok, err := r.eval(raw)
		if err != nil {
			allErrs = append(allErrs, field.InternalError(propsPath, fmt.Errorf("rule %q: %v", r.source.Expression, err)))
			continue
		}
		if !ok {
			allErrs = append(allErrs, field.Invalid(propsPath, "", r.source.Message))
		}
	}

	return errorListToValidationError(allErrs)
}

func validateField(f FieldSpec, raw map[string]any, fldPath *field.Path) field.ErrorList {
	v, present := raw[f.Name]
	if !present || v == nil {
		if f.Required {
			return field.ErrorList{field.Required(fldPath, fmt.Sprintf("%s is required", f.Name))}
		}
		return nil
	}

	switch f.Kind {
	case KindString:
		str, ok := v.(string)
		if !ok {
			return field.ErrorList{field.TypeInvalid(fldPath, v, "expected a string")}
		}
		return validateStringField(f, str, fldPath)
	case KindInt:
		if !isIntValue(v) {
			return field.ErrorList{field.TypeInvalid(fldPath, v, "expected an integer")}
		}
	case KindBool:
		if _, ok := v.(bool); !ok {
			return field.ErrorList{field.TypeInvalid(fldPath, v, "expected a boolean")}
		}
	case KindStringList:
		if !isStringList(v) {
			return field.ErrorList{field.TypeInvalid(fldPath, v, "expected a list of strings")}
		}
	case KindObject:
		if _, ok := v.(map[string]any); !ok {
			return field.ErrorList{field.TypeInvalid(fldPath, v, "expected an object")}
		}
	}
	return nil
}

func validateStringField(f FieldSpec, v string, fldPath *field.Path) field.ErrorList {
	allErrs := field.ErrorList{}
	if len(f.Enum) > 0 {
		found := false
		for _, e := range f.Enum {
			if v == e {
				found = true
				break
			}
		}
		if !found {
			return append(allErrs, field.NotSupported(fldPath, v, f.Enum))
		}
	}
	if f.MinLength > 0 && len(v) < f.MinLength {
		allErrs = append(allErrs, field.Invalid(fldPath, v, fmt.Sprintf("must be at least %d characters", f.MinLength)))
	}
	if f.MaxLength > 0 && len(v) > f.MaxLength {
		allErrs = append(allErrs, field.TooLong(fldPath, v, f.MaxLength))
	}
	if f.DNS1123 {
		for _, msg := range utilvalidation.IsDNS1123Subdomain(v) {
			allErrs = append(allErrs, field.Invalid(fldPath, v, msg))
		}
	}
	return allErrs
}

func isIntValue(v any) bool {
	switch t := v.(type) {
	case int, int32, int64:
		return true
	case float64:
		// JSON decoding yields float64; accept integral values only.
		return t == float64(int64(t))
	}
	return false
}

func isStringList(v any) bool {
	switch t := v.(type) {
	case []string:
		return true
	case []any:
		for _, e := range t {
			if _, ok := e.(string); !ok {
				return false
			}
		}
		return true
	}
	return false
}

// ValidateResourceName checks the name charset/length contract shared by
// all resource types: DNS-1123 subdomain, at most maxLen characters
// (0 means the DNS-1123 limit applies).
func ValidateResourceName(name string, maxLen int) error {
	fldPath := field.NewPath("name")
	allErrs := field.ErrorList{}
	if name == "" {
		allErrs = append(allErrs, field.Required(fldPath, "name is required"))
	} else {
		for _, msg := range utilvalidation.IsDNS1123Subdomain(name) {
			allErrs = append(allErrs, field.Invalid(fldPath, name, msg))
		}
		if maxLen > 0 && len(name) > maxLen {
			allErrs = append(allErrs, field.TooLong(fldPath, name, maxLen))
		}
	}
	return errorListToValidationError(allErrs)
}

// errorListToValidationError converts an apimachinery ErrorList into the
// core's typed ValidationError, preserving order.
func errorListToValidationError(allErrs field.ErrorList) error {
	if len(allErrs) == 0 {
		return nil
	}
	causes := make([]string, 0, len(allErrs))
	for _, e := range allErrs {
		causes = append(causes, e.Error())
	}
	return &ports.ValidationError{
		Field:  allErrs[0].Field,
		Reason: allErrs[0].ErrorBody(),
		Causes: causes,
	}
}
