package resolution

import "github.com/puzpuzpuz/xsync/v3"

// ProgramCache stores compiled predicate programs keyed by expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

type programCache struct {
	programs *xsync.MapOf[string, any]
}

// NewProgramCache returns a ProgramCache safe for concurrent use.
func NewProgramCache() ProgramCache {
	return &programCache{programs: xsync.NewMapOf[string, any]()}
}

func (c *programCache) Get(key string) (any, bool) {
	return c.programs.Load(key)
}

func (c *programCache) Set(key string, value any) {
	c.programs.Store(key, value)
}
