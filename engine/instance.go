package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/multierr"

	"github.com/wippyai/wasm-loader/errors"
)

// Instance is a module bound to one import object. Calls on the same
// instance must not run concurrently.
type Instance struct {
	module *Module
	guest  api.Module
	id     string
	hosts  []api.Module
}

func newInstance(m *Module) *Instance {
	return &Instance{module: m, id: uuid.NewString()}
}

// ID identifies the instance in logs.
func (i *Instance) ID() string {
	return i.id
}

// Module returns the compiled module the instance was created from.
func (i *Instance) Module() *Module {
	return i.module
}

// Guest returns the underlying wazero module.
func (i *Instance) Guest() api.Module {
	return i.guest
}

// Exports returns the instance's exports, identical to the module's.
func (i *Instance) Exports() []Export {
	return i.module.Exports()
}

// ExportNames returns the export names in declaration order.
func (i *Instance) ExportNames() []string {
	return i.module.ExportNames()
}

// ExportedFunction returns the named function, or nil if not exported.
func (i *Instance) ExportedFunction(name string) api.Function {
	return i.guest.ExportedFunction(name)
}

// Call invokes an exported function with raw core values. Use api.EncodeI32
// and friends to build params.
func (i *Instance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	if i.guest == nil {
		return nil, errors.NotInitialized(errors.PhaseRuntime, "instance")
	}
	fn := i.guest.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseRuntime, "function", name)
	}
	results, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindInvalidData, err, "call "+name)
	}
	return results, nil
}

// Memory returns the first exported memory, or nil.
func (i *Instance) Memory() api.Memory {
	return i.guest.Memory()
}

// ExportedMemory returns the named memory, or nil.
func (i *Instance) ExportedMemory(name string) api.Memory {
	return i.guest.ExportedMemory(name)
}

// ExportedGlobal returns the named global, or nil.
func (i *Instance) ExportedGlobal(name string) api.Global {
	return i.guest.ExportedGlobal(name)
}

// Close closes the guest and the host modules built for its imports.
func (i *Instance) Close(ctx context.Context) error {
	var err error
	if i.guest != nil {
		err = i.guest.Close(ctx)
	}
	return multierr.Append(err, i.closeHosts(ctx))
}

func (i *Instance) closeHosts(ctx context.Context) error {
	var err error
	for _, h := range i.hosts {
		err = multierr.Append(err, h.Close(ctx))
	}
	i.hosts = nil
	return err
}
