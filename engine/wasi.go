package engine

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// WASINamespace is the import module name of WASI preview1.
const WASINamespace = wasi_snapshot_preview1.ModuleName

const (
	ebadf     = 8          // POSIX EBADF error code
	invalidFD = 0xFFFFFFFF // -1 as uint32
)

// WASI provides WASI preview1 host functions, plus the adapter functions
// componentize-py and similar toolchains import from the same namespace.
// Guest output goes to Config.Stdout and Config.Stderr.
func WASI() Provider {
	return wasiProvider{}
}

type wasiProvider struct{}

func (wasiProvider) Provides(name string) bool {
	return wasiFuncNames()[name]
}

func (wasiProvider) Resolve(ctx context.Context, r wazero.Runtime, namespace string) (api.Module, bool, error) {
	compiled, err := wasiBuilder(r, namespace).Compile(ctx)
	if err != nil {
		return nil, false, err
	}
	defer compiled.Close(ctx)

	mod, err := r.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, false, err
	}
	return mod, true, nil
}

func wasiBuilder(r wazero.Runtime, namespace string) wazero.HostModuleBuilder {
	builder := r.NewHostModuleBuilder(namespace)
	wasi_snapshot_preview1.NewFunctionExporter().ExportFunctions(builder)

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, _ []uint64) {
		}), nil, nil).
		Export("reset_adapter_state")

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = ebadf
		}), []api.ValueType{api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}).
		Export("adapter_close_badfd")

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = invalidFD
		}), []api.ValueType{api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}).
		Export("adapter_open_badfd")

	return builder
}

var wasiNames struct {
	once  sync.Once
	names map[string]bool
}

// wasiFuncNames lists the functions WASI provides. The host module is built
// once on a throwaway interpreter runtime to read its export names.
func wasiFuncNames() map[string]bool {
	wasiNames.once.Do(func() {
		ctx := context.Background()
		r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
		defer r.Close(ctx)

		names := make(map[string]bool)
		compiled, err := wasiBuilder(r, WASINamespace).Compile(ctx)
		if err == nil {
			for name := range compiled.ExportedFunctions() {
				names[name] = true
			}
		}
		wasiNames.names = names
	})
	return wasiNames.names
}
