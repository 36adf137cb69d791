package resolution

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-resolution/keymap"
	"github.com/sirupsen/logrus"
)

// Predicate engines understood by NewInspectorFromConfig.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// Entry is one tracked (selector, args) pair with its record.
type Entry struct {
	Selector string
	Key      keymap.Key
	Args     []any
	Record   Record
}

// Entries flattens state into entries ordered by selector, then key.
func Entries(state *State) []Entry {
	var entries []Entry
	for _, name := range state.Selectors() {
		table, _ := state.Table(name)
		table.Range(func(key keymap.Key, args []any, record Record) bool {
			entries = append(entries, Entry{Selector: name, Key: key, Args: args, Record: record})
			return true
		})
	}
	return entries
}

// PredicateContext is what a predicate sees for a single entry. Expressions
// reference selector, key, args, status, error and now. A failure value that
// implements error is exposed as its message.
type PredicateContext struct {
	Entry Entry
	Now   time.Time
}

func (c PredicateContext) withDefaultNow() PredicateContext {
	if c.Now.IsZero() {
		c.Now = time.Now()
	}
	return c
}

func (c PredicateContext) variables() map[string]any {
	args := c.Entry.Args
	if args == nil {
		args = []any{}
	}
	return map[string]any{
		"selector": c.Entry.Selector,
		"key":      string(c.Entry.Key),
		"args":     args,
		"status":   c.Entry.Record.Status.String(),
		"error":    errorText(c.Entry.Record.Error),
		"now":      c.Now,
	}
}

// Evaluator runs predicate expressions with one engine.
type Evaluator interface {
	Engine() string
	Evaluate(ctx PredicateContext, expression string) (any, error)
	Compile(expression string) (CompiledPredicate, error)
}

// CompiledPredicate is an expression compiled once and evaluated per entry.
type CompiledPredicate interface {
	Evaluate(ctx PredicateContext) (any, error)
}

// InspectorOption configures an Inspector.
type InspectorOption func(*Inspector)

// WithEvaluator replaces the default expr evaluator.
func WithEvaluator(evaluator Evaluator) InspectorOption {
	return func(i *Inspector) {
		if evaluator != nil {
			i.evaluator = evaluator
		}
	}
}

// WithInspectorLogger sets the logger used for evaluation traces.
func WithInspectorLogger(logger logrus.FieldLogger) InspectorOption {
	return func(i *Inspector) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithClock overrides the source of the now variable.
func WithClock(now func() time.Time) InspectorOption {
	return func(i *Inspector) {
		if now != nil {
			i.now = now
		}
	}
}

// Inspector selects ledger entries with predicate expressions such as
// `status == "error" && selector == "getPost"`.
type Inspector struct {
	evaluator Evaluator
	logger    logrus.FieldLogger
	now       func() time.Time
}

// NewInspector returns an Inspector using the expr engine with a program
// cache unless WithEvaluator says otherwise.
func NewInspector(opts ...InspectorOption) *Inspector {
	i := &Inspector{
		logger: DiscardLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	if i.evaluator == nil {
		i.evaluator = NewExprEvaluator(ExprWithProgramCache(NewProgramCache()))
	}
	return i
}

// NewInspectorFromConfig builds an Inspector for cfg.Engine.
func NewInspectorFromConfig(cfg InspectorConfig, logger logrus.FieldLogger) (*Inspector, error) {
	var cache ProgramCache
	if cfg.CachePrograms {
		cache = NewProgramCache()
	}

	var evaluator Evaluator
	switch engine := strings.ToLower(strings.TrimSpace(cfg.Engine)); engine {
	case "", EngineExpr:
		evaluator = NewExprEvaluator(ExprWithProgramCache(cache))
	case EngineCEL:
		evaluator = NewCELEvaluator(CELWithProgramCache(cache))
	case EngineJS:
		evaluator = NewJSEvaluator(JSWithProgramCache(cache))
		if evaluator == nil {
			return nil, fmt.Errorf("%w: %s (build with -tags js_eval)", ErrEngineUnavailable, engine)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrEngineUnavailable, cfg.Engine)
	}
	return NewInspector(WithEvaluator(evaluator), WithInspectorLogger(logger)), nil
}

// Engine names the evaluator in use.
func (i *Inspector) Engine() string {
	return i.evaluator.Engine()
}

// Match reports whether predicate holds for entry.
func (i *Inspector) Match(entry Entry, predicate string) (bool, error) {
	compiled, err := i.compile(predicate)
	if err != nil {
		return false, err
	}
	return i.match(compiled, predicate, entry, i.now())
}

// Filter returns the entries of state for which predicate holds, in Entries
// order. The first failing evaluation aborts the scan.
func (i *Inspector) Filter(state *State, predicate string) ([]Entry, error) {
	compiled, err := i.compile(predicate)
	if err != nil {
		return nil, err
	}
	now := i.now()
	start := time.Now()
	var matched []Entry
	entries := Entries(state)
	for _, entry := range entries {
		ok, err := i.match(compiled, predicate, entry, now)
		if err != nil {
			i.log(predicate, len(entries), 0, time.Since(start), err)
			return nil, err
		}
		if ok {
			matched = append(matched, entry)
		}
	}
	i.log(predicate, len(entries), len(matched), time.Since(start), nil)
	return matched, nil
}

// Count returns how many entries of state satisfy predicate.
func (i *Inspector) Count(state *State, predicate string) (int, error) {
	matched, err := i.Filter(state, predicate)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

func (i *Inspector) compile(predicate string) (CompiledPredicate, error) {
	if strings.TrimSpace(predicate) == "" {
		return nil, wrapPredicateError(i.Engine(), predicate, nil, ErrEmptyPredicate)
	}
	compiled, err := i.evaluator.Compile(predicate)
	if err != nil {
		err = wrapPredicateError(i.Engine(), predicate, nil, err)
		i.log(predicate, 0, 0, 0, err)
		return nil, err
	}
	return compiled, nil
}

func (i *Inspector) match(compiled CompiledPredicate, predicate string, entry Entry, now time.Time) (bool, error) {
	value, err := compiled.Evaluate(PredicateContext{Entry: entry, Now: now})
	if err != nil {
		return false, wrapPredicateError(i.Engine(), predicate, &entry, err)
	}
	result, ok := value.(bool)
	if !ok {
		return false, wrapPredicateError(i.Engine(), predicate, &entry, fmt.Errorf("%w: got %T", ErrPredicateNotBool, value))
	}
	return result, nil
}

func (i *Inspector) log(predicate string, scanned, matched int, duration time.Duration, err error) {
	entry := i.logger.WithFields(logrus.Fields{
		"engine":   i.Engine(),
		"expr":     predicate,
		"scanned":  scanned,
		"matched":  matched,
		"duration": duration,
	})
	if err != nil {
		entry.WithError(err).Debug("resolution: predicate failed")
		return
	}
	entry.Debug("resolution: predicate evaluated")
}
