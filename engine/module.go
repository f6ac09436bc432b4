package engine

import (
	"context"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Module is a compiled module. It is immutable and safe for concurrent
// instantiation.
type Module struct {
	compiled wazero.CompiledModule
	imports  []Import
	exports  []Export
	size     int
}

// Import is one declared import of a module.
type Import struct {
	Module  string
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
	Kind    api.ExternType
}

// Export is one declared export of a module.
type Export struct {
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
	Kind    api.ExternType
}

func (e Export) String() string {
	if e.Kind != api.ExternTypeFunc {
		return e.Name + ": " + api.ExternTypeName(e.Kind)
	}
	return e.Name + ": " + signature(e.Params, e.Results)
}

func (i Import) String() string {
	qualified := i.Module + "." + i.Name
	if i.Kind != api.ExternTypeFunc {
		return qualified + ": " + api.ExternTypeName(i.Kind)
	}
	return qualified + ": " + signature(i.Params, i.Results)
}

func signature(params, results []api.ValueType) string {
	var b strings.Builder
	b.WriteString("func(")
	for i, p := range params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(api.ValueTypeName(p))
	}
	b.WriteByte(')')
	switch len(results) {
	case 0:
	case 1:
		b.WriteString(" -> ")
		b.WriteString(api.ValueTypeName(results[0]))
	default:
		b.WriteString(" -> (")
		for i, r := range results {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(api.ValueTypeName(r))
		}
		b.WriteByte(')')
	}
	return b.String()
}

func newModule(compiled wazero.CompiledModule, wasm []byte) *Module {
	m := &Module{compiled: compiled, size: len(wasm)}

	imports, exports, err := scanExternals(wasm)
	if err != nil {
		// wazero accepted the binary, so fall back to what it reports.
		imports, exports = externalsFromCompiled(compiled)
	}

	importedFuncs := make(map[string]api.FunctionDefinition)
	for _, def := range compiled.ImportedFunctions() {
		mod, name, _ := def.Import()
		importedFuncs[mod+"#"+name] = def
	}
	for i := range imports {
		if def, ok := importedFuncs[imports[i].Module+"#"+imports[i].Name]; ok {
			imports[i].Params = def.ParamTypes()
			imports[i].Results = def.ResultTypes()
		}
	}

	exportedFuncs := compiled.ExportedFunctions()
	for i := range exports {
		if exports[i].Kind != api.ExternTypeFunc {
			continue
		}
		if def, ok := exportedFuncs[exports[i].Name]; ok {
			exports[i].Params = def.ParamTypes()
			exports[i].Results = def.ResultTypes()
		}
	}

	m.imports = imports
	m.exports = exports
	return m
}

func externalsFromCompiled(compiled wazero.CompiledModule) ([]Import, []Export) {
	var imports []Import
	for _, def := range compiled.ImportedFunctions() {
		mod, name, _ := def.Import()
		imports = append(imports, Import{Module: mod, Name: name, Kind: api.ExternTypeFunc})
	}
	for _, def := range compiled.ImportedMemories() {
		mod, name, _ := def.Import()
		imports = append(imports, Import{Module: mod, Name: name, Kind: api.ExternTypeMemory})
	}

	var exports []Export
	for name := range compiled.ExportedFunctions() {
		exports = append(exports, Export{Name: name, Kind: api.ExternTypeFunc})
	}
	for name := range compiled.ExportedMemories() {
		exports = append(exports, Export{Name: name, Kind: api.ExternTypeMemory})
	}
	return imports, exports
}

// Name returns the name from the module's name section, if any.
func (m *Module) Name() string {
	return m.compiled.Name()
}

// Size returns the length of the binary the module was compiled from.
func (m *Module) Size() int {
	return m.size
}

// Imports returns the module's declared imports in declaration order.
func (m *Module) Imports() []Import {
	return m.imports
}

// Exports returns the module's declared exports in declaration order.
func (m *Module) Exports() []Export {
	return m.exports
}

// ExportNames returns the names of all declared exports.
func (m *Module) ExportNames() []string {
	if len(m.exports) == 0 {
		return nil
	}
	names := make([]string, len(m.exports))
	for i, e := range m.exports {
		names[i] = e.Name
	}
	return names
}

// Compiled exposes the underlying wazero module.
func (m *Module) Compiled() wazero.CompiledModule {
	return m.compiled
}

// Close releases compiled code. Instances created from m keep working.
func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

func (m *Module) importNamespaces() []string {
	var out []string
	seen := make(map[string]bool)
	for _, imp := range m.imports {
		if !seen[imp.Module] {
			seen[imp.Module] = true
			out = append(out, imp.Module)
		}
	}
	return out
}

// missingImports returns "namespace#name" for every function import that
// imports cannot satisfy.
func (m *Module) missingImports(imports Imports) []string {
	var missing []string
	for _, imp := range m.imports {
		if imp.Kind != api.ExternTypeFunc {
			continue
		}
		p, ok := imports[imp.Module]
		if !ok || p == nil || !p.Provides(imp.Name) {
			missing = append(missing, imp.Module+"#"+imp.Name)
		}
	}
	return missing
}
