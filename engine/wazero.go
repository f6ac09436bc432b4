package engine

import (
	"bytes"
	"context"
	"io"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-loader/errors"
)

// DefaultMaxModuleBytes bounds CompileReader when Config.MaxModuleBytes is 0.
const DefaultMaxModuleBytes int64 = 256 << 20

// headerSize is the length of the magic number plus version.
const headerSize = 8

var wasmHeader = []byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00}

// Engine compiles and instantiates core WebAssembly modules on one wazero runtime.
type Engine struct {
	runtime  wazero.Runtime
	cache    wazero.CompilationCache
	modCfg   wazero.ModuleConfig
	maxBytes int64
}

// Config holds configuration for engine creation
type Config struct {
	// CompilationCacheDir persists compiled code across processes.
	// Empty disables the on-disk cache.
	CompilationCacheDir string

	// MaxModuleBytes caps the payload CompileReader accepts.
	// 0 means DefaultMaxModuleBytes.
	MaxModuleBytes int64

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// EnableThreads enables the WebAssembly threads proposal (experimental).
	EnableThreads bool

	// CloseOnContextDone aborts running guest code when the call context ends.
	CloseOnContextDone bool

	// Stdout and Stderr receive guest output written through WASI.
	// nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// New creates an engine with default configuration
func New(ctx context.Context) (*Engine, error) {
	return NewWithConfig(ctx, nil)
}

// NewWithConfig creates a new engine with custom configuration
func NewWithConfig(ctx context.Context, cfg *Config) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	// Anonymous so the same compiled module can be instantiated many times.
	// Only the module's start section runs on instantiation, not _start.
	e := &Engine{
		modCfg:   wazero.NewModuleConfig().WithName("").WithStartFunctions(),
		maxBytes: DefaultMaxModuleBytes,
	}

	if cfg != nil {
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.EnableThreads {
			runtimeCfg = runtimeCfg.WithCoreFeatures(api.CoreFeaturesV2 | experimental.CoreFeaturesThreads)
		}
		if cfg.CloseOnContextDone {
			runtimeCfg = runtimeCfg.WithCloseOnContextDone(true)
		}
		if cfg.MaxModuleBytes > 0 {
			e.maxBytes = cfg.MaxModuleBytes
		}
		if cfg.Stdout != nil {
			e.modCfg = e.modCfg.WithStdout(cfg.Stdout)
		}
		if cfg.Stderr != nil {
			e.modCfg = e.modCfg.WithStderr(cfg.Stderr)
		}
		if cfg.CompilationCacheDir != "" {
			cache, err := wazero.NewCompilationCacheWithDir(cfg.CompilationCacheDir)
			if err != nil {
				return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "open compilation cache")
			}
			e.cache = cache
			runtimeCfg = runtimeCfg.WithCompilationCache(cache)
		}
	}

	e.runtime = wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	return e, nil
}

// Compile validates and compiles a module held in memory.
func (e *Engine) Compile(ctx context.Context, wasm []byte) (*Module, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Compile(err)
	}

	m := newModule(compiled, wasm)
	Logger().Debug("compiled module",
		zap.String("name", m.Name()),
		zap.Int("bytes", m.Size()),
		zap.Int("imports", len(m.imports)),
		zap.Int("exports", len(m.exports)))
	return m, nil
}

// CompileReader compiles a module as it arrives from r. The header is
// checked before the rest of the payload is read so a wrong content type
// fails without draining the stream.
func (e *Engine) CompileReader(ctx context.Context, r io.Reader) (*Module, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, errors.Compile(errors.InvalidInput(errors.PhaseCompile,
				"truncated module header"))
		}
		return nil, errors.Transport("", 0, err)
	}
	if !bytes.Equal(header, wasmHeader) {
		return nil, errors.Compile(errors.New(errors.PhaseCompile, errors.KindInvalidData).
			Value(header).
			Detail("invalid magic number or version %x", header).
			Build())
	}

	buf := bytes.NewBuffer(header)
	n, err := buf.ReadFrom(io.LimitReader(r, e.maxBytes-headerSize+1))
	if err != nil {
		return nil, errors.Transport("", 0, err)
	}
	if n+headerSize > e.maxBytes {
		return nil, errors.TooLarge("", e.maxBytes)
	}

	return e.Compile(ctx, buf.Bytes())
}

// Instantiate binds m to imports and returns a fresh instance. Only the
// namespaces the module declares are resolved; the rest are ignored.
func (e *Engine) Instantiate(ctx context.Context, m *Module, imports Imports) (*Instance, error) {
	if m == nil {
		return nil, errors.Instantiation(errors.NotInitialized(errors.PhaseInstantiate, "module"))
	}

	if missing := m.missingImports(imports); len(missing) > 0 {
		return nil, errors.Instantiation(errors.NewMissingImportsError(missing))
	}

	inst := newInstance(m)
	resolved := make(map[string]api.Module, len(imports))
	for _, ns := range m.importNamespaces() {
		p, ok := imports[ns]
		if !ok || p == nil {
			continue
		}
		mod, owned, err := p.Resolve(ctx, e.runtime, ns)
		if err != nil {
			_ = inst.closeHosts(ctx)
			return nil, errors.Instantiation(err)
		}
		resolved[ns] = mod
		if owned {
			inst.hosts = append(inst.hosts, mod)
		}
	}

	rctx := experimental.WithImportResolver(ctx, func(name string) api.Module {
		return resolved[name]
	})

	guest, err := e.runtime.InstantiateModule(rctx, m.compiled, e.modCfg)
	if err != nil {
		_ = inst.closeHosts(ctx)
		return nil, errors.Instantiation(err)
	}
	inst.guest = guest

	Logger().Debug("instantiated module",
		zap.String("instance", inst.id),
		zap.String("name", m.Name()),
		zap.Int("host_modules", len(inst.hosts)))
	return inst, nil
}

// Close releases the runtime. Instances and modules become unusable.
func (e *Engine) Close(ctx context.Context) error {
	err := e.runtime.Close(ctx)
	if e.cache != nil {
		if cerr := e.cache.Close(ctx); err == nil {
			err = cerr
		}
	}
	return err
}
