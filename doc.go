// Package wasmloader fetches WebAssembly binary modules, compiles them with
// wazero and instantiates them against caller-supplied imports.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	wasmloader/
//	├── loader/          One-shot loader and caching loader factory
//	├── fetch/           HTTP and fs.FS fetchers with browser-like status handling
//	├── engine/          wazero compile, instantiate and per-call import resolution
//	├── errors/          Structured error types (transport, compile, instantiate)
//	├── config/          TOML configuration
//	├── logger/          zap logger construction
//	├── witsig/          WIT signatures for typed calls into core modules
//	└── cmd/wasmload/    Command line inspector and runner
//
// # Quick Start
//
// Load a module once:
//
//	eng, _ := engine.New(ctx)
//	defer eng.Close(ctx)
//
//	f, _ := fetch.NewHTTP(fetch.WithBaseURL("https://cdn.example.com"))
//	l := loader.New(f, eng)
//
//	res, err := l.Load(ctx, "/bin/sample.wasm", engine.Imports{
//	    "env": engine.Funcs{"log": func(x int32) int32 { return x }},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer res.Instance.Close(ctx)
//
// Or keep the compiled module for later calls:
//
//	load := l.MakeLoader(nil)
//	inst, err := load(ctx, "/bin/sample.wasm", imports) // fetches and compiles
//	inst, err = load(ctx, "/bin/sample.wasm", other)    // instantiates only
//
// # Errors
//
// Failures match errors.ErrTransport (the fetch failed or returned a non-2xx
// status), errors.ErrCompile (the payload is not a valid module) or
// errors.ErrInstantiate (imports missing or mismatched, or start failed).
// Nothing is retried.
//
// # Thread Safety
//
// Engine, Loader and Cache are safe for concurrent use. Instance is NOT
// thread-safe and should be used by a single goroutine, or access must be
// synchronized.
package wasmloader
