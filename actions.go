package resolution

import (
	"errors"
	"fmt"
)

// ActionType tags an Action so reducers can pattern-match on it.
type ActionType string

const (
	ActionStartResolution                      ActionType = "START_RESOLUTION"
	ActionFinishResolution                     ActionType = "FINISH_RESOLUTION"
	ActionFailResolution                       ActionType = "FAIL_RESOLUTION"
	ActionStartResolutions                     ActionType = "START_RESOLUTIONS"
	ActionFinishResolutions                    ActionType = "FINISH_RESOLUTIONS"
	ActionFailResolutions                      ActionType = "FAIL_RESOLUTIONS"
	ActionInvalidateResolution                 ActionType = "INVALIDATE_RESOLUTION"
	ActionInvalidateResolutionForStore         ActionType = "INVALIDATE_RESOLUTION_FOR_STORE"
	ActionInvalidateResolutionForStoreSelector ActionType = "INVALIDATE_RESOLUTION_FOR_STORE_SELECTOR"
)

// Known reports whether t is part of the resolution vocabulary.
func (t ActionType) Known() bool {
	switch t {
	case ActionStartResolution, ActionFinishResolution, ActionFailResolution,
		ActionStartResolutions, ActionFinishResolutions, ActionFailResolutions,
		ActionInvalidateResolution, ActionInvalidateResolutionForStore,
		ActionInvalidateResolutionForStoreSelector:
		return true
	default:
		return false
	}
}

// Action is a plain, serialisable description of a resolution lifecycle
// event. Singular actions use Args and Error; batched actions use ArgsList and
// Errors, where Errors[i] belongs to ArgsList[i].
type Action struct {
	Type         ActionType `json:"type"`
	SelectorName string     `json:"selectorName,omitempty"`
	Args         []any      `json:"args,omitempty"`
	ArgsList     [][]any    `json:"argsList,omitempty"`
	Error        any        `json:"error,omitempty"`
	Errors       []any      `json:"errors,omitempty"`
}

var (
	// ErrUnknownAction reports an action type outside the vocabulary.
	ErrUnknownAction = errors.New("resolution: unknown action type")
	// ErrSelectorNameRequired reports an action missing its selector name.
	ErrSelectorNameRequired = errors.New("resolution: selector name is required")
)

// StartResolution signals that resolution of selectorName for args started.
func StartResolution(selectorName string, args ...any) Action {
	return Action{Type: ActionStartResolution, SelectorName: selectorName, Args: args}
}

// FinishResolution signals that resolution of selectorName for args completed.
func FinishResolution(selectorName string, args ...any) Action {
	return Action{Type: ActionFinishResolution, SelectorName: selectorName, Args: args}
}

// FailResolution signals that resolution of selectorName for args failed with
// err. err is stored as-is.
func FailResolution(selectorName string, args []any, err any) Action {
	return Action{Type: ActionFailResolution, SelectorName: selectorName, Args: args, Error: err}
}

// StartResolutions signals that a batch of resolutions started.
func StartResolutions(selectorName string, argsList [][]any) Action {
	return Action{Type: ActionStartResolutions, SelectorName: selectorName, ArgsList: argsList}
}

// FinishResolutions signals that a batch of resolutions completed.
func FinishResolutions(selectorName string, argsList [][]any) Action {
	return Action{Type: ActionFinishResolutions, SelectorName: selectorName, ArgsList: argsList}
}

// FailResolutions signals that a batch of resolutions completed and at least
// one failed. The lengths of argsList and errs are not checked here.
func FailResolutions(selectorName string, argsList [][]any, errs []any) Action {
	return Action{Type: ActionFailResolutions, SelectorName: selectorName, ArgsList: argsList, Errors: errs}
}

// InvalidateResolution drops the record for selectorName and args.
func InvalidateResolution(selectorName string, args ...any) Action {
	return Action{Type: ActionInvalidateResolution, SelectorName: selectorName, Args: args}
}

// InvalidateResolutionForStore drops every record.
func InvalidateResolutionForStore() Action {
	return Action{Type: ActionInvalidateResolutionForStore}
}

// InvalidateResolutionForStoreSelector drops every record of selectorName.
func InvalidateResolutionForStoreSelector(selectorName string) Action {
	return Action{Type: ActionInvalidateResolutionForStoreSelector, SelectorName: selectorName}
}

// Batched reports whether the action carries ArgsList rather than Args.
func (a Action) Batched() bool {
	switch a.Type {
	case ActionStartResolutions, ActionFinishResolutions, ActionFailResolutions:
		return true
	default:
		return false
	}
}

// Validate checks the action shape. Constructors never fail, so this is only
// useful for actions that arrive from outside, such as decoded payloads.
func (a Action) Validate() error {
	if !a.Type.Known() {
		return fmt.Errorf("%w %q", ErrUnknownAction, a.Type)
	}
	if a.Type != ActionInvalidateResolutionForStore && a.SelectorName == "" {
		return fmt.Errorf("%w for %s", ErrSelectorNameRequired, a.Type)
	}
	return nil
}
