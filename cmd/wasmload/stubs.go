package main

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-loader/engine"
)

// stubImports satisfies every function import of m with a host function
// that logs its arguments and returns zero values.
func stubImports(m *engine.Module, log *zap.Logger) engine.Imports {
	imports := make(engine.Imports)
	for _, imp := range m.Imports() {
		if imp.Kind != api.ExternTypeFunc {
			continue
		}
		funcs, ok := imports[imp.Module].(engine.Funcs)
		if !ok {
			funcs = make(engine.Funcs)
			imports[imp.Module] = funcs
		}
		funcs[imp.Name] = stub(imp, log)
	}
	return imports
}

func stub(imp engine.Import, log *zap.Logger) engine.HostFunc {
	name := imp.Module + "." + imp.Name
	nparams := len(imp.Params)
	return engine.HostFunc{
		Params:  imp.Params,
		Results: imp.Results,
		Fn: api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			log.Info("stub called",
				zap.String("import", name),
				zap.Uint64s("args", append([]uint64(nil), stack[:nparams]...)),
			)
			for i := range imp.Results {
				stack[i] = 0
			}
		}),
	}
}
