package loader

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/wippyai/wasm-loader/engine"
)

// LoadFunc instantiates the module at path against imports.
type LoadFunc func(ctx context.Context, path string, imports engine.Imports) (*engine.Instance, error)

// Cache is a loader with a private slot for one compiled module. Once the
// slot is filled, calls instantiate the cached module and never fetch or
// compile again, whatever path they are given.
type Cache struct {
	loader *Loader
	slot   *Slot
	group  *singleflight.Group
}

// NewCache returns a cache seeded with seed. A nil seed starts empty.
func (l *Loader) NewCache(seed *engine.Module) *Cache {
	c := &Cache{
		loader: l,
		slot:   NewSlot(seed),
	}
	if l.singleFlight {
		c.group = &singleflight.Group{}
	}
	return c
}

// MakeLoader returns the Load method of a new cache seeded with seed.
func (l *Loader) MakeLoader(seed *engine.Module) LoadFunc {
	return l.NewCache(seed).Load
}

// Slot exposes the cache slot.
func (c *Cache) Slot() *Slot {
	return c.slot
}

// Load returns a fresh instance of the cached module, fetching and compiling
// it first if the slot is empty. Fetch and compile failures leave the slot
// empty. A module that compiled but failed to instantiate stays cached.
func (c *Cache) Load(ctx context.Context, path string, imports engine.Imports) (*engine.Instance, error) {
	if mod, ok := c.slot.Load(); ok {
		c.loader.metrics.lookup(true)
		return c.loader.instantiate(ctx, path, mod, imports)
	}
	c.loader.metrics.lookup(false)

	mod, err := c.compile(ctx, path)
	if err != nil {
		return nil, err
	}

	if !c.slot.Fill(mod) {
		// Lost the race. The losing module is not closed: compiled code is
		// shared per content inside the runtime and is released with it.
		winner, _ := c.slot.Load()
		if winner != mod {
			c.loader.logger.Debug("cache already filled, using cached module",
				zap.String("path", path))
			mod = winner
		}
	}
	return c.loader.instantiate(ctx, path, mod, imports)
}

func (c *Cache) compile(ctx context.Context, path string) (*engine.Module, error) {
	if c.group == nil {
		return c.loader.Compile(ctx, path)
	}
	v, err, _ := c.group.Do(path, func() (any, error) {
		return c.loader.Compile(ctx, path)
	})
	if err != nil {
		return nil, err
	}
	return v.(*engine.Module), nil
}
