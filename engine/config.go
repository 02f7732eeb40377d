package engine

import (
	"github.com/hupe1980/freeagent/core"
	"github.com/hupe1980/freeagent/logging"
	"github.com/hupe1980/freeagent/tool"
)

// Config bounds the iteration loop and its supporting subsystems.
type Config struct {
	// MaxIterations is the default iteration budget for new sessions.
	MaxIterations int
	// ParseRetryLimit bounds consecutive unparseable collaborator answers
	// before the session fails.
	ParseRetryLimit int
	// BlackboardTail is the number of recent blackboard entries included in
	// reasoning snapshots.
	BlackboardTail int
	// MaxChildren bounds the children of one spawn request.
	MaxChildren int
	// ContinueExtension is the default budget extension granted by Continue.
	ContinueExtension int
	// UpdateBufferSize is the capacity of subscriber channels.
	UpdateBufferSize int
	// MaxInlineChars bounds inline tool results before attribute detachment.
	MaxInlineChars int
	// Cache configures the per-session idempotent-call cache.
	Cache tool.CacheConfig
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		MaxIterations:     10,
		ParseRetryLimit:   3,
		BlackboardTail:    50,
		MaxChildren:       tool.DefaultMaxChildren,
		ContinueExtension: 5,
		UpdateBufferSize:  16,
		MaxInlineChars:    tool.DefaultMaxInlineChars,
		Cache:             tool.DefaultCacheConfig(),
	}
}

// Options configure engine construction.
type Options struct {
	// Config holds the loop bounds; zero fields fall back to defaults.
	Config Config
	// Logger receives engine telemetry. Defaults to NoOpLogger.
	Logger logging.Logger
	// SessionStore holds the session arena. Defaults to the in-memory store.
	SessionStore core.SessionStore
	// ArtifactStore backs export_artifact and reset archival. Defaults to the
	// in-memory store.
	ArtifactStore core.ArtifactStore
	// Tools are additional (typically remote) tools registered alongside the
	// built-in set.
	Tools []tool.Tool
}

// normalize fills zero config fields with defaults.
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.MaxIterations <= 0 {
		c.MaxIterations = def.MaxIterations
	}
	if c.ParseRetryLimit <= 0 {
		c.ParseRetryLimit = def.ParseRetryLimit
	}
	if c.BlackboardTail <= 0 {
		c.BlackboardTail = def.BlackboardTail
	}
	if c.MaxChildren <= 0 {
		c.MaxChildren = def.MaxChildren
	}
	if c.ContinueExtension <= 0 {
		c.ContinueExtension = def.ContinueExtension
	}
	if c.UpdateBufferSize <= 0 {
		c.UpdateBufferSize = def.UpdateBufferSize
	}
	if c.MaxInlineChars <= 0 {
		c.MaxInlineChars = def.MaxInlineChars
	}
	if c.Cache.MaxSize <= 0 {
		c.Cache = def.Cache
	}
}
