package resolution

import (
	"encoding/json"
	"fmt"
	"time"

	celgo "github.com/google/cel-go/cel"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

type celEvaluator struct {
	cache ProgramCache
}

// NewCELEvaluator constructs an Evaluator backed by cel-go. Predicates are
// type checked against the entry variables, so `status == 1` fails to compile.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Engine() string {
	return EngineCEL
}

func (e *celEvaluator) Evaluate(ctx PredicateContext, expression string) (any, error) {
	compiled, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return compiled.Evaluate(ctx)
}

func (e *celEvaluator) Compile(expression string) (CompiledPredicate, error) {
	if expression == "" {
		return nil, wrapPredicateError(EngineCEL, expression, nil, ErrEmptyPredicate)
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, wrapPredicateError(EngineCEL, expression, nil, err)
	}
	return &celCompiledPredicate{program: program, expression: expression}, nil
}

func (e *celEvaluator) loadOrCompile(expression string) (celgo.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(cacheKey(EngineCEL, expression)); ok {
			if program, ok := cached.(celgo.Program); ok {
				return program, nil
			}
		}
	}

	env, err := celEnv()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(cacheKey(EngineCEL, expression), program)
	}
	return program, nil
}

func celEnv() (*celgo.Env, error) {
	return celgo.NewEnv(
		celgo.Variable("selector", celgo.StringType),
		celgo.Variable("key", celgo.StringType),
		celgo.Variable("args", celgo.ListType(celgo.DynType)),
		celgo.Variable("status", celgo.StringType),
		celgo.Variable("error", celgo.DynType),
		celgo.Variable("now", celgo.TimestampType),
	)
}

type celCompiledPredicate struct {
	program    celgo.Program
	expression string
}

func (p *celCompiledPredicate) Evaluate(ctx PredicateContext) (any, error) {
	ctx = ctx.withDefaultNow()
	out, _, err := p.program.Eval(celActivation(ctx.variables()))
	if err != nil {
		return nil, wrapPredicateError(EngineCEL, p.expression, &ctx.Entry, err)
	}
	return out.Value(), nil
}

// celActivation rewrites args and error into values cel-go can convert. Go
// structs and other named types are passed through their JSON form.
func celActivation(vars map[string]any) map[string]any {
	vars["args"] = celValue(vars["args"])
	vars["error"] = celValue(vars["error"])
	return vars
}

func celValue(value any) any {
	switch v := value.(type) {
	case nil, bool, string, []byte, time.Time, time.Duration,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = celValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = celValue(item)
		}
		return out
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Sprint(value)
	}
	return generic
}
