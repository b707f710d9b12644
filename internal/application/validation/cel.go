package validation

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
)

// compiledRule is a cross-field rule with its CEL program, compiled once at
// schema construction and evaluated per request.
type compiledRule struct {
	source  CrossFieldRule
	program celgo.Program
}

func compileRules(rules []CrossFieldRule) ([]compiledRule, error) {
	if len(rules) == 0 {
		return nil, nil
	}
	env, err := celgo.NewEnv(
		celgo.Variable("self", celgo.MapType(celgo.StringType, celgo.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("cel environment: %w", err)
	}

	out := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		if r.Expression == "" {
			return nil, fmt.Errorf("cross-field rule expression must not be empty")
		}
		ast, issues := env.Compile(r.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Expression, issues.Err())
		}
		// Dyn-typed inputs leave the checker unable to prove bool output;
		// runtime evaluation still enforces it.
		if t := ast.OutputType(); !t.IsExactType(celgo.BoolType) && !t.IsExactType(celgo.DynType) {
			return nil, fmt.Errorf("rule %q: expression must evaluate to bool, got %s", r.Expression, t)
		}
		program, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Expression, err)
		}
		out = append(out, compiledRule{source: r, program: program})
	}
	return out, nil
}

func (r compiledRule) eval(raw map[string]any) (bool, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	out, _, err := r.program.Eval(map[string]any{"self": raw})
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression produced %T, want bool", out.Value())
	}
	return b, nil
}
