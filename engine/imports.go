package engine

import (
	"context"
	"reflect"
	"sort"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-loader/errors"
)

// Imports is the import object of one instantiation, keyed by the import
// module name (namespace) the guest declares. A nil Imports is empty.
type Imports map[string]Provider

// Provider satisfies one import namespace.
type Provider interface {
	// Provides reports whether the function name can be supplied.
	Provides(name string) bool

	// Resolve returns the module the guest links against. owned modules are
	// closed together with the instance.
	Resolve(ctx context.Context, r wazero.Runtime, namespace string) (mod api.Module, owned bool, err error)
}

// HostFunc is a host function with an explicit core signature.
type HostFunc struct {
	Fn      api.GoModuleFunction
	Params  []api.ValueType
	Results []api.ValueType
}

// Funcs provides Go functions under their export names. Values are either a
// HostFunc or a Go func whose signature wazero can reflect, optionally
// starting with context.Context and api.Module:
//
//	engine.Funcs{"log": func(x int32) int32 { return x }}
type Funcs map[string]any

// Provides implements Provider.
func (f Funcs) Provides(name string) bool {
	_, ok := f[name]
	return ok
}

// Resolve builds an anonymous host module, so concurrent instances can use
// different functions under the same namespace.
func (f Funcs) Resolve(ctx context.Context, r wazero.Runtime, namespace string) (api.Module, bool, error) {
	builder := r.NewHostModuleBuilder(namespace)

	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		switch fn := f[name].(type) {
		case HostFunc:
			builder.NewFunctionBuilder().
				WithGoModuleFunction(fn.Fn, fn.Params, fn.Results).
				Export(name)
		case *HostFunc:
			builder.NewFunctionBuilder().
				WithGoModuleFunction(fn.Fn, fn.Params, fn.Results).
				Export(name)
		default:
			if fn == nil || reflect.TypeOf(fn).Kind() != reflect.Func {
				return nil, false, errors.New(errors.PhaseInstantiate, errors.KindTypeMismatch).
					Path(namespace+"."+name).
					Value(fn).
					Detail("import value must be a function, got %T", fn).
					Build()
			}
			builder.NewFunctionBuilder().WithFunc(fn).Export(name)
		}
	}

	compiled, err := builder.Compile(ctx)
	if err != nil {
		return nil, false, errors.Wrap(errors.PhaseInstantiate, errors.KindTypeMismatch, err,
			"build host module "+namespace)
	}
	defer compiled.Close(ctx)

	mod, err := r.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, false, errors.Wrap(errors.PhaseInstantiate, errors.KindInstantiation, err,
			"instantiate host module "+namespace)
	}
	return mod, true, nil
}

type moduleProvider struct {
	mod api.Module
}

// FromModule satisfies a namespace with the exports of a module instantiated
// by the same engine. Memories, tables and globals can only be imported this
// way. The module is not closed with the importing instance.
func FromModule(mod api.Module) Provider {
	return moduleProvider{mod: mod}
}

// FromInstance satisfies a namespace with the exports of inst. A nil inst
// provides nothing.
func FromInstance(inst *Instance) Provider {
	if inst == nil || inst.guest == nil {
		return moduleProvider{}
	}
	return moduleProvider{mod: inst.guest}
}

func (p moduleProvider) Provides(name string) bool {
	return p.mod != nil && p.mod.ExportedFunction(name) != nil
}

func (p moduleProvider) Resolve(context.Context, wazero.Runtime, string) (api.Module, bool, error) {
	if p.mod == nil {
		return nil, false, errors.NotInitialized(errors.PhaseInstantiate, "import module")
	}
	return p.mod, false, nil
}
