package resolution

import "github.com/goliatone/go-resolution/keymap"

// GetResolutionState returns the record tracked for selectorName and args.
// The boolean is false when the selector was never resolved for args or the
// record was invalidated.
func GetResolutionState(state *State, selectorName string, args ...any) (Record, bool) {
	table, ok := state.Table(selectorName)
	if !ok {
		return Record{}, false
	}
	return table.GetKey(keymap.KeyOf(args...))
}

// HasStartedResolution reports whether resolution was triggered for
// selectorName and args, whatever its outcome.
func HasStartedResolution(state *State, selectorName string, args ...any) bool {
	_, ok := GetResolutionState(state, selectorName, args...)
	return ok
}

// HasFinishedResolution reports whether resolution completed, successfully or
// not.
func HasFinishedResolution(state *State, selectorName string, args ...any) bool {
	record, ok := GetResolutionState(state, selectorName, args...)
	return ok && record.Status.Settled()
}

// HasResolutionFailed reports whether resolution completed with an error.
func HasResolutionFailed(state *State, selectorName string, args ...any) bool {
	record, ok := GetResolutionState(state, selectorName, args...)
	return ok && record.Status == StatusError
}

// GetResolutionError returns the value resolution failed with. The boolean is
// true only for failed records, so a failure carrying a nil value can be told
// apart from "no failure".
func GetResolutionError(state *State, selectorName string, args ...any) (any, bool) {
	record, ok := GetResolutionState(state, selectorName, args...)
	if !ok || record.Status != StatusError {
		return nil, false
	}
	return record.Error, true
}

// IsResolving reports whether resolution started and has not settled.
func IsResolving(state *State, selectorName string, args ...any) bool {
	record, ok := GetResolutionState(state, selectorName, args...)
	return ok && record.Status == StatusResolving
}

// GetIsResolving is the legacy tri-state form of IsResolving: ok is false when
// nothing is tracked for selectorName and args.
//
// Deprecated: use GetResolutionState.
func GetIsResolving(state *State, selectorName string, args ...any) (resolving bool, ok bool) {
	Deprecated("resolution.GetIsResolving", DeprecationOptions{
		Since:       "6.6",
		Version:     "6.8",
		Alternative: "resolution.GetResolutionState",
	})

	record, ok := GetResolutionState(state, selectorName, args...)
	if !ok {
		return false, false
	}
	return record.Status == StatusResolving, true
}

// GetCachedResolvers returns state itself.
func GetCachedResolvers(state *State) *State {
	return state
}

// HasResolvingSelectors reports whether any record of any selector is
// resolving.
func HasResolvingSelectors(state *State) bool {
	if state == nil {
		return false
	}
	for _, table := range state.selectors {
		if table.Any(func(record Record) bool { return record.Status == StatusResolving }) {
			return true
		}
	}
	return false
}
