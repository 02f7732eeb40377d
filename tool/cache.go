package tool

import (
	"encoding/json"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheMaxSize = 256

// CacheConfig configures the idempotent-call cache behaviour.
type CacheConfig struct {
	// MaxSize is the maximum number of entries in the LRU cache.
	MaxSize int
	// ExcludeTools lists tool names that should never be cached because
	// re-running them is not idempotent.
	ExcludeTools []string
}

// DefaultCacheConfig returns sensible defaults for idempotent-call caching.
// Every mutating local handler is excluded; read-only and remote lookups
// remain cacheable.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxSize: defaultCacheMaxSize,
		ExcludeTools: []string{
			"write_blackboard",
			"write_scratchpad",
			"read_blackboard",
			"read_scratchpad",
			"get_attributes",
			"produce_artifact",
			"export_artifact",
			"request_assistance",
			"read_self",
			"write_self",
			"spawn",
		},
	}
}

// CallCache serves identical (tool, params) pairs seen earlier in the same
// session from memory instead of re-invoking the handler. Entries are
// session-scoped; Purge is called on session reset.
type CallCache struct {
	cache    *lru.Cache[string, Result]
	excluded map[string]struct{}
}

// NewCallCache constructs a cache from the given config.
func NewCallCache(cfg CacheConfig) (*CallCache, error) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaultCacheMaxSize
	}
	c, err := lru.New[string, Result](cfg.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("create call cache: %w", err)
	}
	excluded := make(map[string]struct{}, len(cfg.ExcludeTools))
	for _, name := range cfg.ExcludeTools {
		excluded[name] = struct{}{}
	}
	return &CallCache{cache: c, excluded: excluded}, nil
}

// Cacheable reports whether results for the named tool may be cached.
func (c *CallCache) Cacheable(name string) bool {
	_, skip := c.excluded[name]
	return !skip
}

// Key builds the canonical cache key for a (tool, params) pair.
// encoding/json marshals map keys in sorted order, so structurally equal
// parameter maps produce identical keys.
func (c *CallCache) Key(name string, params map[string]any) (string, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("marshal cache key params: %w", err)
	}
	return name + ":" + string(data), nil
}

// Get returns the cached result for the pair, if present and cacheable.
func (c *CallCache) Get(name string, params map[string]any) (Result, bool) {
	if !c.Cacheable(name) {
		return Result{}, false
	}
	key, err := c.Key(name, params)
	if err != nil {
		return Result{}, false
	}
	return c.cache.Get(key)
}

// Add stores a successful result for the pair. Failed results are never
// cached so transient faults stay retryable.
func (c *CallCache) Add(name string, params map[string]any, r Result) {
	if !c.Cacheable(name) || !r.Success {
		return
	}
	key, err := c.Key(name, params)
	if err != nil {
		return
	}
	c.cache.Add(key, r)
}

// Len returns the number of distinct cached pairs, surfaced to operators.
func (c *CallCache) Len() int { return c.cache.Len() }

// Purge drops all entries (session reset).
func (c *CallCache) Purge() { c.cache.Purge() }
