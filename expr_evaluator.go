package resolution

import (
	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprEvaluatorOption configures an expr evaluator instance.
type ExprEvaluatorOption func(*exprEvaluator)

// ExprWithProgramCache wires a ProgramCache into the expr evaluator.
func ExprWithProgramCache(cache ProgramCache) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		e.cache = cache
	}
}

// exprEvaluator executes predicates using github.com/expr-lang/expr.
type exprEvaluator struct {
	cache ProgramCache
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr.
func NewExprEvaluator(opts ...ExprEvaluatorOption) Evaluator {
	e := &exprEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *exprEvaluator) Engine() string {
	return EngineExpr
}

func (e *exprEvaluator) Evaluate(ctx PredicateContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapPredicateError(EngineExpr, expression, nil, ErrEmptyPredicate)
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, expression, program)
}

func (e *exprEvaluator) Compile(expression string) (CompiledPredicate, error) {
	if expression == "" {
		return nil, wrapPredicateError(EngineExpr, expression, nil, ErrEmptyPredicate)
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &exprCompiledPredicate{evaluator: e, program: program, expression: expression}, nil
}

func (e *exprEvaluator) loadOrCompile(expression string) (*exprvm.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(cacheKey(EngineExpr, expression)); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	program, err := exprlang.Compile(expression,
		exprlang.Env(exprCompileEnv()),
		exprlang.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, wrapPredicateError(EngineExpr, expression, nil, err)
	}
	if e.cache != nil {
		e.cache.Set(cacheKey(EngineExpr, expression), program)
	}
	return program, nil
}

func (e *exprEvaluator) run(ctx PredicateContext, expression string, program *exprvm.Program) (any, error) {
	ctx = ctx.withDefaultNow()
	result, err := exprlang.Run(program, ctx.variables())
	if err != nil {
		return nil, wrapPredicateError(EngineExpr, expression, &ctx.Entry, err)
	}
	return result, nil
}

type exprCompiledPredicate struct {
	evaluator  *exprEvaluator
	program    *exprvm.Program
	expression string
}

func (p *exprCompiledPredicate) Evaluate(ctx PredicateContext) (any, error) {
	return p.evaluator.run(ctx, p.expression, p.program)
}

// exprCompileEnv types the fixed variables. error is left out so its type
// stays dynamic.
func exprCompileEnv() map[string]any {
	env := PredicateContext{}.variables()
	delete(env, "error")
	return env
}

// cacheKey keeps engines from reading each other's programs when they share
// a cache.
func cacheKey(engine, expression string) string {
	return engine + ":" + expression
}
