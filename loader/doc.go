// Package loader fetches WebAssembly binary modules, compiles them and
// instantiates them against caller-supplied imports.
//
// A Loader offers two entry points:
//
//	l := loader.New(fetcher, eng)
//
//	// One-shot: fetch, compile and instantiate on every call.
//	res, err := l.Load(ctx, "/bin/sample.wasm", imports)
//
//	// Cached: the first successful compile is kept in a private slot and
//	// every later call only instantiates it.
//	load := l.MakeLoader(nil)
//	inst, err := load(ctx, "/bin/sample.wasm", imports)
//
// A cache may be pre-seeded with an already compiled module, in which case
// it never fetches. Fetch and compile failures are not cached; the next call
// tries again. Failures match errors.ErrTransport, errors.ErrCompile or
// errors.ErrInstantiate.
//
// Compilation goes through a Strategy chosen once when the Loader is built:
// streaming when the compiler implements StreamCompiler, buffered otherwise.
package loader
