// Package engine compiles and instantiates core WebAssembly modules with wazero.
//
// # Architecture
//
//	Engine   - owns the wazero runtime and optional on-disk compilation cache
//	Module   - a compiled module with its declared imports and exports
//	Instance - a module bound to one import object
//
// # Imports
//
// Every instantiation receives its own Imports. Function namespaces are built
// as anonymous host modules and handed to wazero through an import resolver,
// so two instances of the same module may link different Go functions under
// the same namespace without registering names on the shared runtime:
//
//	inst, err := eng.Instantiate(ctx, mod, engine.Imports{
//		"env": engine.Funcs{
//			"log": func(x int32) int32 { return x },
//		},
//	})
//
// Memories, tables and globals are imported from another instance with
// FromInstance.
//
// WASI returns a provider for the wasi_snapshot_preview1 namespace. Guest
// output goes to Config.Stdout and Config.Stderr. Instantiation never calls
// an exported _start.
//
// Before linking, declared function imports are checked against the import
// object and all gaps are reported together in a MissingImportsError.
//
// # Streaming
//
// CompileReader checks the module header as soon as it arrives and bounds the
// payload by Config.MaxModuleBytes. wazero itself compiles from a complete
// buffer.
//
// # Thread Safety
//
// Engine and Module are safe for concurrent use.
// Instance is NOT thread-safe and should be used by a single goroutine.
package engine
