package engine

import (
	"bytes"
	"fmt"
	"io"

	"github.com/tetratelabs/wazero/api"
)

const (
	sectionImport byte = 2
	sectionExport byte = 7
)

const kindTag byte = 4

// scanExternals reads the import and export sections of a binary that has
// already been validated. wazero does not report table and global exports of
// a compiled module, so the sections are read directly.
func scanExternals(wasm []byte) ([]Import, []Export, error) {
	if len(wasm) < headerSize {
		return nil, nil, io.ErrUnexpectedEOF
	}
	r := bytes.NewReader(wasm[headerSize:])

	var imports []Import
	var exports []Export
	for r.Len() > 0 {
		id, err := r.ReadByte()
		if err != nil {
			return nil, nil, err
		}
		size, err := readU32(r)
		if err != nil {
			return nil, nil, err
		}
		if int(size) > r.Len() {
			return nil, nil, fmt.Errorf("section %d: size %d exceeds remaining %d", id, size, r.Len())
		}
		start := len(wasm) - r.Len()
		payload := bytes.NewReader(wasm[start : start+int(size)])

		switch id {
		case sectionImport:
			if imports, err = readImports(payload); err != nil {
				return nil, nil, fmt.Errorf("import section: %w", err)
			}
		case sectionExport:
			if exports, err = readExports(payload); err != nil {
				return nil, nil, fmt.Errorf("export section: %w", err)
			}
		}
		if _, err := r.Seek(int64(size), io.SeekCurrent); err != nil {
			return nil, nil, err
		}
	}
	return imports, exports, nil
}

func readImports(r *bytes.Reader) ([]Import, error) {
	count, err := readU32(r)
	if err != nil {
		return nil, err
	}
	imports := make([]Import, 0, count)
	for i := uint32(0); i < count; i++ {
		mod, err := readName(r)
		if err != nil {
			return nil, err
		}
		name, err := readName(r)
		if err != nil {
			return nil, err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if err := skipImportDesc(r, kind); err != nil {
			return nil, err
		}
		if kind == kindTag {
			continue
		}
		imports = append(imports, Import{Module: mod, Name: name, Kind: api.ExternType(kind)})
	}
	return imports, nil
}

func readExports(r *bytes.Reader) ([]Export, error) {
	count, err := readU32(r)
	if err != nil {
		return nil, err
	}
	exports := make([]Export, 0, count)
	for i := uint32(0); i < count; i++ {
		name, err := readName(r)
		if err != nil {
			return nil, err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if _, err := readU32(r); err != nil {
			return nil, err
		}
		if kind == kindTag {
			continue
		}
		exports = append(exports, Export{Name: name, Kind: api.ExternType(kind)})
	}
	return exports, nil
}

func skipImportDesc(r *bytes.Reader, kind byte) error {
	switch api.ExternType(kind) {
	case api.ExternTypeFunc:
		_, err := readU32(r)
		return err
	case api.ExternTypeTable:
		if err := skipRefType(r); err != nil {
			return err
		}
		return skipLimits(r)
	case api.ExternTypeMemory:
		return skipLimits(r)
	case api.ExternTypeGlobal:
		if err := skipRefType(r); err != nil {
			return err
		}
		_, err := r.ReadByte() // mutability
		return err
	}
	if kind == kindTag {
		if _, err := r.ReadByte(); err != nil { // attribute
			return err
		}
		_, err := readU32(r)
		return err
	}
	return fmt.Errorf("unknown import kind 0x%x", kind)
}

// skipRefType skips a value type, including the typed references of the GC
// proposal which carry a heap type.
func skipRefType(r *bytes.Reader) error {
	b, err := r.ReadByte()
	if err != nil {
		return err
	}
	if b == 0x63 || b == 0x64 {
		_, err = readS33(r)
	}
	return err
}

func skipLimits(r *bytes.Reader) error {
	flags, err := r.ReadByte()
	if err != nil {
		return err
	}
	if _, err := readU64(r); err != nil {
		return err
	}
	if flags&0x01 != 0 {
		_, err = readU64(r)
	}
	return err
}

func readName(r *bytes.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	if int(n) > r.Len() {
		return "", io.ErrUnexpectedEOF
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readU32(r io.ByteReader) (uint32, error) {
	v, err := readU64(r)
	if err != nil {
		return 0, err
	}
	if v > 0xFFFFFFFF {
		return 0, fmt.Errorf("leb128: u32 overflow")
	}
	return uint32(v), nil
}

func readU64(r io.ByteReader) (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 70 {
			return 0, fmt.Errorf("leb128: overflow")
		}
	}
}

func readS33(r io.ByteReader) (int64, error) {
	var result int64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				result |= -1 << shift
			}
			return result, nil
		}
		if shift >= 35 {
			return 0, fmt.Errorf("leb128: s33 overflow")
		}
	}
}
