package engine

import (
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-loader/internal/testwasm"
)

func TestScanExternals(t *testing.T) {
	imports, exports, err := scanExternals(testwasm.Consumer())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	wantImports := []Import{
		{Module: "math", Name: "double", Kind: api.ExternTypeFunc},
		{Module: "math", Name: "memory", Kind: api.ExternTypeMemory},
	}
	if diff := cmp.Diff(wantImports, imports); diff != "" {
		t.Errorf("imports mismatch (-want +got):\n%s", diff)
	}

	wantExports := []Export{{Name: "quad", Kind: api.ExternTypeFunc}}
	if diff := cmp.Diff(wantExports, exports); diff != "" {
		t.Errorf("exports mismatch (-want +got):\n%s", diff)
	}
}

func TestScanExternals_Malformed(t *testing.T) {
	tests := []struct {
		name string
		wasm []byte
	}{
		{"short", []byte{0x00, 'a'}},
		{"section overruns", append(testwasm.Empty(), 0x07, 0x10, 0x01)},
		{"truncated name", append(testwasm.Empty(), 0x07, 0x03, 0x01, 0x05, 'a')},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := scanExternals(tt.wasm); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestReadS33(t *testing.T) {
	tests := []struct {
		in   []byte
		want int64
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7F}, -1},
		{[]byte{0x70}, -16},
		{[]byte{0x80, 0x01}, 128},
	}
	for _, tt := range tests {
		got, err := readS33(&byteReader{data: tt.in})
		if err != nil {
			t.Fatalf("readS33(%x): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("readS33(%x) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

type byteReader struct {
	data []byte
}

func (b *byteReader) ReadByte() (byte, error) {
	if len(b.data) == 0 {
		return 0, io.EOF
	}
	c := b.data[0]
	b.data = b.data[1:]
	return c, nil
}
