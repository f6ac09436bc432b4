// Package testwasm encodes the small core modules used as fixtures by tests.
package testwasm

import "bytes"

// Value types.
const (
	I32 byte = 0x7F
	I64 byte = 0x7E
	F32 byte = 0x7D
	F64 byte = 0x7C
)

// Import/export kinds.
const (
	KindFunc   byte = 0
	KindMemory byte = 2
)

const (
	sectionType     byte = 1
	sectionImport   byte = 2
	sectionFunction byte = 3
	sectionMemory   byte = 5
	sectionExport   byte = 7
	sectionCode     byte = 10
)

// Instruction opcodes used by the fixtures.
const (
	OpCall     byte = 0x10
	OpLocalGet byte = 0x20
	OpI32Const byte = 0x41
	OpI32Add   byte = 0x6A
	opEnd      byte = 0x0B
)

// FuncType is a function signature.
type FuncType struct {
	Params  []byte
	Results []byte
}

// Import declares a function (TypeIdx) or memory (MinPages) import.
type Import struct {
	Module   string
	Name     string
	Kind     byte
	TypeIdx  uint32
	MinPages uint32
}

// Export names a function or memory index.
type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// Module is a core module description. Code holds one body per entry in
// Funcs, without locals or the trailing end opcode.
type Module struct {
	Types    []FuncType
	Imports  []Import
	Funcs    []uint32
	Memories []uint32
	Exports  []Export
	Code     [][]byte
}

// Encode encodes the module to WebAssembly binary format
func (m *Module) Encode() []byte {
	var w writer
	w.bytes([]byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00})

	if len(m.Types) > 0 {
		var sec writer
		sec.u32(uint32(len(m.Types)))
		for _, ft := range m.Types {
			sec.byte(0x60)
			sec.vec(ft.Params)
			sec.vec(ft.Results)
		}
		w.section(sectionType, sec.buf.Bytes())
	}

	if len(m.Imports) > 0 {
		var sec writer
		sec.u32(uint32(len(m.Imports)))
		for _, imp := range m.Imports {
			sec.name(imp.Module)
			sec.name(imp.Name)
			sec.byte(imp.Kind)
			switch imp.Kind {
			case KindFunc:
				sec.u32(imp.TypeIdx)
			case KindMemory:
				sec.byte(0x00)
				sec.u32(imp.MinPages)
			}
		}
		w.section(sectionImport, sec.buf.Bytes())
	}

	if len(m.Funcs) > 0 {
		var sec writer
		sec.u32(uint32(len(m.Funcs)))
		for _, idx := range m.Funcs {
			sec.u32(idx)
		}
		w.section(sectionFunction, sec.buf.Bytes())
	}

	if len(m.Memories) > 0 {
		var sec writer
		sec.u32(uint32(len(m.Memories)))
		for _, min := range m.Memories {
			sec.byte(0x00)
			sec.u32(min)
		}
		w.section(sectionMemory, sec.buf.Bytes())
	}

	if len(m.Exports) > 0 {
		var sec writer
		sec.u32(uint32(len(m.Exports)))
		for _, exp := range m.Exports {
			sec.name(exp.Name)
			sec.byte(exp.Kind)
			sec.u32(exp.Idx)
		}
		w.section(sectionExport, sec.buf.Bytes())
	}

	if len(m.Code) > 0 {
		var sec writer
		sec.u32(uint32(len(m.Code)))
		for _, body := range m.Code {
			var fn writer
			fn.u32(0) // no local declarations
			fn.bytes(body)
			fn.byte(opEnd)
			sec.u32(uint32(fn.buf.Len()))
			sec.bytes(fn.buf.Bytes())
		}
		w.section(sectionCode, sec.buf.Bytes())
	}

	return w.buf.Bytes()
}

type writer struct {
	buf bytes.Buffer
}

func (w *writer) byte(b byte) {
	w.buf.WriteByte(b)
}

func (w *writer) bytes(b []byte) {
	w.buf.Write(b)
}

// u32 writes an unsigned LEB128 encoded uint32.
func (w *writer) u32(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.buf.WriteByte(b)
		if v == 0 {
			break
		}
	}
}

func (w *writer) vec(types []byte) {
	w.u32(uint32(len(types)))
	w.bytes(types)
}

func (w *writer) name(s string) {
	w.u32(uint32(len(s)))
	w.buf.WriteString(s)
}

func (w *writer) section(id byte, payload []byte) {
	w.byte(id)
	w.u32(uint32(len(payload)))
	w.bytes(payload)
}
