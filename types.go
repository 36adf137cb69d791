package resolution

import (
	"errors"
	"fmt"
	"sort"

	"github.com/goliatone/go-resolution/keymap"
)

// Record is the resolution state of one (selector, args) pair. Error is only
// meaningful when Status is StatusError and holds whatever value the resolver
// failed with, which need not implement error.
type Record struct {
	Status Status `json:"status"`
	Error  any    `json:"error,omitempty"`
}

// Resolving returns a record for a resolution in flight.
func Resolving() Record {
	return Record{Status: StatusResolving}
}

// Finished returns a record for a successful resolution.
func Finished() Record {
	return Record{Status: StatusFinished}
}

// Failed returns a record for a failed resolution carrying err.
func Failed(err any) Record {
	return Record{Status: StatusError, Error: err}
}

// Table holds the records of a single selector keyed by normalized args.
type Table = keymap.Map[Record]

// State maps selector names to their tables. A *State is never modified once
// built; Reduce returns a new pointer whenever anything changes, which lets
// memoized queries compare states by identity. A nil *State reads as empty.
type State struct {
	selectors map[string]*Table
}

// NewState returns an empty state.
func NewState() *State {
	return &State{selectors: map[string]*Table{}}
}

// Table returns the table for selectorName.
func (s *State) Table(selectorName string) (*Table, bool) {
	if s == nil {
		return nil, false
	}
	table, ok := s.selectors[selectorName]
	return table, ok
}

// Selectors returns the names of all tracked selectors in ascending order.
func (s *State) Selectors() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.selectors))
	for name := range s.selectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of records across all selectors.
func (s *State) Len() int {
	if s == nil {
		return 0
	}
	total := 0
	for _, table := range s.selectors {
		total += table.Len()
	}
	return total
}

// Empty reports whether the state tracks no selectors.
func (s *State) Empty() bool {
	return s == nil || len(s.selectors) == 0
}

// ErrInvalidStatus is returned by Validate for records whose status is not
// recognised.
var ErrInvalidStatus = errors.New("resolution: invalid status")

// Validate checks that every record carries a recognised status. It is the
// strict counterpart to CountSelectorsByStatus, which buckets unknown statuses
// under StatusError instead of failing.
func (s *State) Validate() error {
	var errs []error
	for _, name := range s.Selectors() {
		s.selectors[name].Range(func(key keymap.Key, _ []any, record Record) bool {
			if !record.Status.Valid() {
				errs = append(errs, fmt.Errorf("%w %q for selector %q args %s", ErrInvalidStatus, record.Status, name, key))
			}
			return true
		})
	}
	return errors.Join(errs...)
}

func (s *State) withTable(selectorName string, table *Table) *State {
	next := &State{selectors: make(map[string]*Table, len(s.selectorsOrNil())+1)}
	for name, existing := range s.selectorsOrNil() {
		next.selectors[name] = existing
	}
	next.selectors[selectorName] = table
	return next
}

func (s *State) withoutTable(selectorName string) *State {
	if _, ok := s.Table(selectorName); !ok {
		return s
	}
	next := &State{selectors: make(map[string]*Table, len(s.selectors)-1)}
	for name, existing := range s.selectors {
		if name == selectorName {
			continue
		}
		next.selectors[name] = existing
	}
	return next
}

func (s *State) selectorsOrNil() map[string]*Table {
	if s == nil {
		return nil
	}
	return s.selectors
}
