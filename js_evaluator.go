//go:build js_eval

package resolution

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsEvaluator struct {
	cache ProgramCache
}

// NewJSEvaluator constructs an Evaluator backed by goja. Each evaluation runs
// in a fresh runtime.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	cfg := applyJSEvaluatorOptions(opts)
	return &jsEvaluator{cache: cfg.cache}
}

func (e *jsEvaluator) Engine() string {
	return EngineJS
}

func (e *jsEvaluator) Evaluate(ctx PredicateContext, expression string) (any, error) {
	compiled, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return compiled.Evaluate(ctx)
}

func (e *jsEvaluator) Compile(expression string) (CompiledPredicate, error) {
	if expression == "" {
		return nil, wrapPredicateError(EngineJS, expression, nil, ErrEmptyPredicate)
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, wrapPredicateError(EngineJS, expression, nil, err)
	}
	return &jsCompiledPredicate{program: program, expression: expression}, nil
}

func (e *jsEvaluator) loadOrCompile(expression string) (*goja.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(cacheKey(EngineJS, expression)); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("predicate", wrapExpression(expression), false)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(cacheKey(EngineJS, expression), program)
	}
	return program, nil
}

func wrapExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}

type jsCompiledPredicate struct {
	program    *goja.Program
	expression string
}

func (p *jsCompiledPredicate) Evaluate(ctx PredicateContext) (any, error) {
	ctx = ctx.withDefaultNow()
	vm := goja.New()
	for name, value := range ctx.variables() {
		if err := vm.Set(name, value); err != nil {
			return nil, wrapPredicateError(EngineJS, p.expression, &ctx.Entry, err)
		}
	}
	value, err := vm.RunProgram(p.program)
	if err != nil {
		return nil, wrapPredicateError(EngineJS, p.expression, &ctx.Entry, err)
	}
	return value.Export(), nil
}

func jsEvaluatorAvailable() bool {
	return true
}
