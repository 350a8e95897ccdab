package engine

import (
	"context"
	"fmt"
	"log/slog"
)

// UsableFunc decides whether a fetch produced usable output. The source
// scraper supplies one that runs its extraction rules, so "fetched fine but
// zero listings parsed" escalates to the next strategy the same way a
// network failure does.
type UsableFunc func(*FetchResult) bool

// Chain tries an ordered list of engines until one produces usable output.
// The order is the fallback policy: fastest first, browser last.
//
// A Memory lets the chain skip strategies that recently failed for this
// key: if the browser engine was the last to work for a source, the next
// search starts there instead of burning the fast-fetch timeout again.
type Chain struct {
	key     string
	engines []Engine
	memory  *Memory
}

// NewChain creates a Chain for one source. key namespaces the engine memory
// (one remembered engine per source). memory may be nil to disable it.
func NewChain(key string, engines []Engine, memory *Memory) *Chain {
	return &Chain{
		key:     key,
		engines: engines,
		memory:  memory,
	}
}

// Fetch runs the strategies in order and returns the first usable result.
// When every strategy fails it returns the last error.
func (c *Chain) Fetch(ctx context.Context, req *FetchRequest, usable UsableFunc) (*FetchResult, error) {
	tried := ""

	// A remembered engine jumps the queue.
	if c.memory != nil {
		if remembered := c.memory.Get(c.key); remembered != "" {
			for _, eng := range c.engines {
				if eng.Name() != remembered {
					continue
				}
				result, err := c.attempt(ctx, eng, req, usable)
				if err == nil {
					return result, nil
				}
				slog.Debug("remembered engine no longer works, running full chain",
					"key", c.key, "engine", remembered, "error", err)
				c.memory.Delete(c.key)
				tried = remembered
				break
			}
		}
	}

	var lastErr error
	for _, eng := range c.engines {
		if eng.Name() == tried {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("chain: budget exhausted before %s: %w", eng.Name(), err)
		}

		result, err := c.attempt(ctx, eng, req, usable)
		if err != nil {
			slog.Debug("engine attempt failed", "key", c.key, "engine", eng.Name(), "error", err)
			lastErr = err
			continue
		}
		if c.memory != nil {
			c.memory.Set(c.key, eng.Name())
		}
		return result, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("chain: no engines configured for %s", c.key)
	}
	return nil, lastErr
}

// attempt runs one engine and applies the usable predicate.
func (c *Chain) attempt(ctx context.Context, eng Engine, req *FetchRequest, usable UsableFunc) (*FetchResult, error) {
	result, err := eng.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if usable != nil && !usable(result) {
		return nil, fmt.Errorf("chain: %s produced no usable output for %s", eng.Name(), req.URL)
	}
	return result, nil
}
