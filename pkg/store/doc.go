// Package store holds a resolution ledger behind a lock and drives it with
// dispatched actions.
//
// Every Dispatch validates the action, reduces it into a new *resolution.State,
// notifies subscribers when the state pointer changed, and reports the action
// to the configured activity hooks. Dispatches are traced with OpenTelemetry
// and counted on a meter, both defaulting to the global providers.
//
//	s := store.New(store.WithLogger(logger))
//	err := s.Resolve(ctx, "getPost", []any{42}, func(ctx context.Context) error {
//		return loadPost(ctx, 42)
//	})
//	resolution.HasFinishedResolution(s.State(), "getPost", 42)
package store
