// Package rules provides the validation-rule engine applied to field
// values. A rule is an expression over the variable `value`; evaluating
// to anything but true yields a violation message.
package rules

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// Engine validates a value against a rule expression and returns zero or
// more violation messages.
type Engine interface {
	Validate(ctx context.Context, value any, rule string) []string
}

// Noop accepts every value.
type Noop struct{}

func (Noop) Validate(ctx context.Context, value any, rule string) []string { return nil }

// CELEngine evaluates rules as CEL expressions. Compiled programs are
// cached per rule string; the cache is safe for concurrent use.
type CELEngine struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewCELEngine creates a CEL engine with `value` bound as a dynamic
// variable.
func NewCELEngine() (*CELEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("value", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}
	return &CELEngine{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Validate evaluates the rule with the given value. A rule that fails to
// compile is itself reported as a violation so a bad attribute
// configuration surfaces instead of silently passing values.
func (e *CELEngine) Validate(ctx context.Context, value any, rule string) []string {
	if rule == "" {
		return nil
	}

	prg, err := e.program(rule)
	if err != nil {
		return []string{fmt.Sprintf("invalid validation rule: %v", err)}
	}

	out, _, err := prg.ContextEval(ctx, map[string]any{"value": value})
	if err != nil {
		return []string{fmt.Sprintf("rule evaluation failed: %v", err)}
	}

	if passed, ok := out.Value().(bool); ok && passed {
		return nil
	}
	return []string{fmt.Sprintf("value does not satisfy rule %q", rule)}
}

func (e *CELEngine) program(rule string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[rule]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(rule)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.programs[rule] = prg
	e.mu.Unlock()
	return prg, nil
}
