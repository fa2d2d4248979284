package clabject

import (
	"sort"
	"strings"
	"sync"
)

// Built-in evaluator engine names.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// ProgramCache stores compiled expression programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// WithProgramCache registers a program cache shared by the built-in
// evaluators. Keys are namespaced per engine so one cache can back all of
// them.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *modelConfig) {
		cfg.programCache = cache
	}
}

// MemoryProgramCache is an unbounded ProgramCache safe for concurrent use.
type MemoryProgramCache struct {
	mu       sync.RWMutex
	programs map[string]any
}

// NewMemoryProgramCache constructs an empty cache.
func NewMemoryProgramCache() *MemoryProgramCache {
	return &MemoryProgramCache{programs: map[string]any{}}
}

// Get implements ProgramCache.
func (c *MemoryProgramCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.programs[key]
	return value, ok
}

// Set implements ProgramCache.
func (c *MemoryProgramCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.programs == nil {
		c.programs = map[string]any{}
	}
	c.programs[key] = value
}

// Len returns the number of cached programs.
func (c *MemoryProgramCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.programs)
}

type namespacedCache struct {
	prefix string
	inner  ProgramCache
}

func namespaced(engine string, cache ProgramCache) ProgramCache {
	if cache == nil {
		return nil
	}
	if existing, ok := cache.(namespacedCache); ok {
		cache = existing.inner
	}
	return namespacedCache{prefix: engine + ":", inner: cache}
}

func (c namespacedCache) Get(key string) (any, bool) {
	return c.inner.Get(c.prefix + key)
}

func (c namespacedCache) Set(key string, value any) {
	c.inner.Set(c.prefix+key, value)
}

func keySignature(snapshot map[string]any) string {
	keys := make([]string, 0, len(snapshot))
	for key := range snapshot {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}
