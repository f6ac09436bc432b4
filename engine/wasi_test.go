package engine

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/wippyai/wasm-loader/errors"
	"github.com/wippyai/wasm-loader/internal/testwasm"
)

func TestWASI_Provides(t *testing.T) {
	p := WASI()
	for _, name := range []string{"fd_write", "args_sizes_get", "proc_exit", "adapter_open_badfd"} {
		if !p.Provides(name) {
			t.Errorf("Provides(%q) = false", name)
		}
	}
	if p.Provides("not_a_wasi_function") {
		t.Error("Provides(not_a_wasi_function) = true")
	}
}

func TestWASI_Instantiate(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, nil)

	mod, err := eng.Compile(ctx, testwasm.WASIArgs())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	if _, err := eng.Instantiate(ctx, mod, nil); !stderrors.Is(err, errors.ErrInstantiate) {
		t.Fatalf("without WASI: err = %v, want instantiate error", err)
	}

	// Two instances, each with its own WASI host module.
	for i := 0; i < 2; i++ {
		inst, err := eng.Instantiate(ctx, mod, Imports{WASINamespace: WASI()})
		if err != nil {
			t.Fatalf("instantiate %d: %v", i, err)
		}
		res, err := inst.Call(ctx, "args")
		if err != nil {
			t.Fatalf("call args: %v", err)
		}
		if res[0] != 0 {
			t.Errorf("errno = %d, want 0", res[0])
		}
		if argc, ok := inst.Memory().ReadUint32Le(0); !ok || argc != 0 {
			t.Errorf("argc = %d (ok=%v), want 0", argc, ok)
		}
		if err := inst.Close(ctx); err != nil {
			t.Errorf("close: %v", err)
		}
	}
}
