package testwasm

// Sample imports env.log (i32) -> i32 and exports:
//
//	add(a, b i32) i32      a + b
//	log_add(a, b i32) i32  log(a + b)
//	memory                 one page
func Sample() []byte {
	m := &Module{
		Types: []FuncType{
			{Params: []byte{I32}, Results: []byte{I32}},
			{Params: []byte{I32, I32}, Results: []byte{I32}},
		},
		Imports: []Import{
			{Module: "env", Name: "log", Kind: KindFunc, TypeIdx: 0},
		},
		Funcs:    []uint32{1, 1},
		Memories: []uint32{1},
		Exports: []Export{
			{Name: "add", Kind: KindFunc, Idx: 1},
			{Name: "log_add", Kind: KindFunc, Idx: 2},
			{Name: "memory", Kind: KindMemory, Idx: 0},
		},
		Code: [][]byte{
			{OpLocalGet, 0, OpLocalGet, 1, OpI32Add},
			{OpLocalGet, 0, OpLocalGet, 1, OpI32Add, OpCall, 0},
		},
	}
	return m.Encode()
}

// SampleExports lists the export names of Sample in declaration order.
var SampleExports = []string{"add", "log_add", "memory"}

// Provider exports double(x i32) i32 and a one page memory. It has no imports.
func Provider() []byte {
	m := &Module{
		Types: []FuncType{
			{Params: []byte{I32}, Results: []byte{I32}},
		},
		Funcs:    []uint32{0},
		Memories: []uint32{1},
		Exports: []Export{
			{Name: "double", Kind: KindFunc, Idx: 0},
			{Name: "memory", Kind: KindMemory, Idx: 0},
		},
		Code: [][]byte{
			{OpLocalGet, 0, OpLocalGet, 0, OpI32Add},
		},
	}
	return m.Encode()
}

// Consumer imports math.double and math.memory (as provided by Provider) and
// exports quad(x i32) i32 = double(double(x)).
func Consumer() []byte {
	m := &Module{
		Types: []FuncType{
			{Params: []byte{I32}, Results: []byte{I32}},
		},
		Imports: []Import{
			{Module: "math", Name: "double", Kind: KindFunc, TypeIdx: 0},
			{Module: "math", Name: "memory", Kind: KindMemory, MinPages: 1},
		},
		Funcs: []uint32{0},
		Exports: []Export{
			{Name: "quad", Kind: KindFunc, Idx: 1},
		},
		Code: [][]byte{
			{OpLocalGet, 0, OpCall, 0, OpCall, 0},
		},
	}
	return m.Encode()
}

// Empty is a valid module with no imports and no exports.
func Empty() []byte {
	return (&Module{}).Encode()
}

// Invalid is a payload that fails binary validation.
func Invalid() []byte {
	return []byte("definitely not a wasm module")
}

// BadVersion carries the wasm magic with an unsupported version.
func BadVersion() []byte {
	return []byte{0x00, 'a', 's', 'm', 0x02, 0x00, 0x00, 0x00}
}

// WASIArgs imports wasi_snapshot_preview1.args_sizes_get and exports
// memory and args() i32, which stores argc and the argv buffer size at
// offsets 0 and 4 and returns the errno.
func WASIArgs() []byte {
	m := &Module{
		Types: []FuncType{
			{Params: []byte{I32, I32}, Results: []byte{I32}},
			{Results: []byte{I32}},
		},
		Imports: []Import{
			{Module: "wasi_snapshot_preview1", Name: "args_sizes_get", Kind: KindFunc, TypeIdx: 0},
		},
		Funcs:    []uint32{1},
		Memories: []uint32{1},
		Exports: []Export{
			{Name: "args", Kind: KindFunc, Idx: 1},
			{Name: "memory", Kind: KindMemory, Idx: 0},
		},
		Code: [][]byte{
			{OpI32Const, 0, OpI32Const, 4, OpCall, 0},
		},
	}
	return m.Encode()
}
