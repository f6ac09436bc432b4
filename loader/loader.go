package loader

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-loader/engine"
	"github.com/wippyai/wasm-loader/errors"
	"github.com/wippyai/wasm-loader/fetch"
)

// Result is the outcome of a one-shot load.
type Result struct {
	Module   *engine.Module
	Instance *engine.Instance
}

// Loader fetches, compiles and instantiates modules.
type Loader struct {
	fetcher  fetch.Fetcher
	compiler Compiler
	strategy Strategy
	logger   *zap.Logger
	metrics  *loaderMetrics

	maxBytes     int64
	singleFlight bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger used for load failures and debug traces.
func WithLogger(l *zap.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// WithStrategy overrides the compile strategy picked by SelectStrategy.
func WithStrategy(s Strategy) Option {
	return func(ld *Loader) {
		ld.strategy = s
	}
}

// WithMaxModuleBytes bounds the payload read by the buffered strategy.
func WithMaxModuleBytes(n int64) Option {
	return func(ld *Loader) {
		ld.maxBytes = n
	}
}

// WithSingleFlight makes concurrent first calls of a cache share a single
// fetch and compile per path. Without it each call races independently and
// the first compiled module to be stored wins.
func WithSingleFlight() Option {
	return func(ld *Loader) {
		ld.singleFlight = true
	}
}

// New returns a Loader that fetches with f and compiles with c.
func New(f fetch.Fetcher, c Compiler, opts ...Option) *Loader {
	l := &Loader{
		fetcher:  f,
		compiler: c,
		logger:   zap.NewNop(),
		metrics:  newLoaderMetrics(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.strategy == nil {
		l.strategy = SelectStrategy(c, l.maxBytes)
	}
	return l
}

// Strategy returns the compile strategy in use.
func (l *Loader) Strategy() Strategy {
	return l.strategy
}

// PrometheusCollectors returns the loader's metrics. They are not registered
// anywhere by default.
func (l *Loader) PrometheusCollectors() []prometheus.Collector {
	return l.metrics.PrometheusCollectors()
}

// Load fetches the module at path, compiles it and instantiates it against
// imports. Nothing is cached.
func (l *Loader) Load(ctx context.Context, path string, imports engine.Imports) (*Result, error) {
	mod, err := l.Compile(ctx, path)
	if err != nil {
		return nil, err
	}
	inst, err := l.instantiate(ctx, path, mod, imports)
	if err != nil {
		return nil, err
	}
	return &Result{Module: mod, Instance: inst}, nil
}

// Compile fetches and compiles the module at path without instantiating it.
// The result can seed a cache.
func (l *Loader) Compile(ctx context.Context, path string) (*engine.Module, error) {
	start := time.Now()
	resp, err := l.fetcher.Fetch(ctx, path)
	if err != nil {
		l.metrics.fetched(0, start)
		if !stderrors.Is(err, errors.ErrTransport) {
			err = errors.Transport(path, 0, err)
		}
		return nil, l.fail(path, err)
	}
	defer resp.Close()

	l.metrics.fetched(resp.Status, start)
	if !resp.OK() {
		return nil, l.fail(path, errors.Transport(path, resp.Status, nil))
	}
	if resp.Path == "" {
		resp.Path = path
	}

	start = time.Now()
	mod, err := l.strategy.Compile(ctx, resp)
	l.metrics.compiled(err, start)
	if err != nil {
		if !stderrors.Is(err, errors.ErrCompile) && !stderrors.Is(err, errors.ErrTransport) {
			err = errors.Compile(err)
		}
		return nil, l.fail(path, err)
	}

	l.logger.Debug("compiled module",
		zap.String("path", path),
		zap.String("strategy", l.strategy.Name()),
		zap.Int("bytes", mod.Size()),
		zap.Strings("exports", mod.ExportNames()),
		zap.Duration("duration", time.Since(start)),
	)
	return mod, nil
}

func (l *Loader) instantiate(ctx context.Context, path string, mod *engine.Module, imports engine.Imports) (*engine.Instance, error) {
	start := time.Now()
	inst, err := l.compiler.Instantiate(ctx, mod, imports)
	l.metrics.instantiated(err, start)
	if err != nil {
		if !stderrors.Is(err, errors.ErrInstantiate) {
			err = errors.Instantiation(err)
		}
		return nil, l.fail(path, err)
	}
	l.logger.Debug("instantiated module",
		zap.String("path", path),
		zap.String("instance", inst.ID()),
		zap.Duration("duration", time.Since(start)),
	)
	return inst, nil
}

// fail annotates err with path and logs it. Every failure passes through
// here exactly once.
func (l *Loader) fail(path string, err error) error {
	var e *errors.Error
	if stderrors.As(err, &e) && e.Path == "" {
		e.Path = path
	}
	l.logger.Error("failed to load module",
		zap.String("path", path),
		zap.Int("status", errors.StatusOf(err)),
		zap.Error(err),
	)
	return err
}

