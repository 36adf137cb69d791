package resolution

// Reduce applies action to state and returns the resulting state. It never
// modifies state. When the action changes nothing, such as an unknown type or
// an invalidation of a missing entry, the input pointer is returned as-is.
func Reduce(state *State, action Action) *State {
	switch action.Type {
	case ActionInvalidateResolutionForStore:
		if state != nil && state.Empty() {
			return state
		}
		return NewState()
	case ActionInvalidateResolutionForStoreSelector:
		if state == nil {
			return NewState()
		}
		return state.withoutTable(action.SelectorName)
	case ActionStartResolution,
		ActionFinishResolution,
		ActionFailResolution,
		ActionStartResolutions,
		ActionFinishResolutions,
		ActionFailResolutions,
		ActionInvalidateResolution:
		return reduceSelector(state, action)
	}
	if state == nil {
		return NewState()
	}
	return state
}

func reduceSelector(state *State, action Action) *State {
	table, _ := state.Table(action.SelectorName)
	var next *Table

	switch action.Type {
	case ActionStartResolution:
		next = table.With(action.Args, Resolving())
	case ActionFinishResolution:
		next = table.With(action.Args, Finished())
	case ActionFailResolution:
		next = table.With(action.Args, Failed(action.Error))
	case ActionStartResolutions:
		next = table.WithMany(action.ArgsList, func(int) Record { return Resolving() })
	case ActionFinishResolutions:
		next = table.WithMany(action.ArgsList, func(int) Record { return Finished() })
	case ActionFailResolutions:
		next = table.WithMany(action.ArgsList, func(i int) Record {
			var err any
			if i < len(action.Errors) {
				err = action.Errors[i]
			}
			return Failed(err)
		})
	case ActionInvalidateResolution:
		next = table.Without(action.Args...)
	}

	if next == table {
		if state == nil {
			return NewState()
		}
		return state
	}
	return state.withTable(action.SelectorName, next)
}
