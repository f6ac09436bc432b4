// Package errors provides structured error types for the wasm-loader library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The loader surfaces three kinds to callers:
//
//	ErrTransport   - the fetch failed or returned a non-success status
//	ErrCompile     - the payload is not a valid WebAssembly module
//	ErrInstantiate - the module could not be linked against the supplied imports
//
// Match them with the standard library:
//
//	if errors.Is(err, wlerrors.ErrTransport) {
//		status := wlerrors.StatusOf(err)
//	}
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseFetch, errors.KindTransport).
//		Path("/bin/sample.wasm").
//		Status(404).
//		Build()
package errors
