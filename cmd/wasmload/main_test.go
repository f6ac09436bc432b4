package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-loader/engine"
	"github.com/wippyai/wasm-loader/internal/testwasm"
	"github.com/wippyai/wasm-loader/witsig"
)

func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string][]byte{
		"sample.wasm":   testwasm.Sample(),
		"provider.wasm": testwasm.Provider(),
		"invalid.wasm":  testwasm.Invalid(),
		"args.wasm":     testwasm.WASIArgs(),
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInspect(t *testing.T) {
	dir := writeFixtures(t)

	out, err := execute(t, "inspect", "--root", dir, "/sample.wasm")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{
		"Module: /sample.wasm",
		"Imports: 1",
		"env.log: func(i32) -> i32",
		"Exports: 3",
		"add: func(i32, i32) -> i32",
		"memory: memory",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if _, err := execute(t, "inspect", "--root", dir, "/invalid.wasm"); err == nil {
		t.Error("expected compile error")
	}
	if _, err := execute(t, "inspect", "--root", dir, "/missing.wasm"); err == nil {
		t.Error("expected transport error")
	}
}

func TestRun(t *testing.T) {
	dir := writeFixtures(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "core signature",
			args: []string{"--func", "add", "--arg", "2", "--arg", "3", "--stub-imports"},
			want: "Result: 5",
		},
		{
			name: "wit signature",
			args: []string{"--func", "add", "--arg", "4294967295", "--arg", "1", "--stub-imports",
				"--wit", "add: func(a: u32, b: u32) -> u32"},
			want: "Result: 0",
		},
		{
			name: "stubbed import returns zero",
			args: []string{"--func", "log_add", "--arg", "2", "--arg", "3", "--stub-imports"},
			want: "Result: 0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"run", "--root", dir, "/sample.wasm"}, tt.args...)
			out, err := execute(t, args...)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out)
			}
		})
	}
}

func TestRun_EntryPoint(t *testing.T) {
	dir := writeFixtures(t)

	// provider exports a single function.
	out, err := execute(t, "run", "--root", dir, "/provider.wasm", "--arg", "21")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "Result: 42") {
		t.Errorf("unexpected output:\n%s", out)
	}

	// sample has several, so nothing is called.
	out, err = execute(t, "run", "--root", dir, "/sample.wasm", "--stub-imports")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "No function specified") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRun_Errors(t *testing.T) {
	dir := writeFixtures(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing imports", []string{"/sample.wasm", "--func", "add", "--arg", "1", "--arg", "2"}},
		{"unknown function", []string{"/sample.wasm", "--func", "nope", "--stub-imports"}},
		{"bad argument", []string{"/sample.wasm", "--func", "add", "--arg", "x", "--arg", "2", "--stub-imports"}},
		{"wrong arity", []string{"/sample.wasm", "--func", "add", "--arg", "1", "--stub-imports"}},
		{"wit mismatch", []string{"/sample.wasm", "--func", "add", "--stub-imports", "--wit", "add: func(a: u64) -> u64"}},
		{"bad log level", []string{"/sample.wasm", "--log-level", "loud"}},
		{"relative base url", []string{"/sample.wasm", "--base-url", "cdn"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"run", "--root", dir}, tt.args...)
			if _, err := execute(t, args...); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRun_EnvOverrides(t *testing.T) {
	dir := writeFixtures(t)
	t.Setenv("WASMLOAD_ROOT", dir)

	out, err := execute(t, "inspect", "/provider.wasm")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(out, "double: func(i32) -> i32") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRun_ConfigFile(t *testing.T) {
	dir := writeFixtures(t)
	cfg := filepath.Join(t.TempDir(), "wasmload.toml")
	data := "[fetch]\nroot = \"" + filepath.ToSlash(dir) + "\"\n\n[log]\nformat = \"json\"\n"
	if err := os.WriteFile(cfg, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "run", "--config", cfg, "/provider.wasm", "--arg", "5")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "Result: 10") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRun_WASI(t *testing.T) {
	dir := writeFixtures(t)

	if _, err := execute(t, "run", "--root", dir, "--func", "args", "/args.wasm"); err == nil {
		t.Fatal("expected an error without --wasi")
	}

	out, err := execute(t, "run", "--root", dir, "--wasi", "--func", "args", "/args.wasm")
	if err != nil {
		t.Fatalf("run --wasi: %v", err)
	}
	if !strings.Contains(out, "Result: 0") {
		t.Errorf("output = %q, want errno 0", out)
	}
}

func TestStubImports(t *testing.T) {
	ctx := context.Background()
	eng, err := engine.New(ctx)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	defer eng.Close(ctx)

	mod, err := eng.Compile(ctx, testwasm.Consumer())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	imports := stubImports(mod, zap.NewNop())
	funcs, ok := imports["math"].(engine.Funcs)
	if !ok || len(funcs) != 1 {
		t.Fatalf("imports = %#v, want one math function", imports)
	}
	if _, ok := funcs["double"]; !ok {
		t.Fatal("missing stub for math.double")
	}
}

func TestInteractiveModel(t *testing.T) {
	ctx := context.Background()
	eng, err := engine.New(ctx)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	defer eng.Close(ctx)

	mod, err := eng.Compile(ctx, testwasm.Provider())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	sigs, err := signatures(mod, "")
	if err != nil {
		t.Fatalf("signatures: %v", err)
	}

	instantiations := 0
	m := newInteractiveModel(ctx, "/provider.wasm", sigs, func() (*engine.Instance, error) {
		instantiations++
		return eng.Instantiate(ctx, mod, nil)
	})
	defer m.close()

	if !strings.Contains(m.View(), "double") {
		t.Fatalf("view missing function list:\n%s", m.View())
	}

	call := func(arg string) string {
		t.Helper()
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if m.state != stateInputArgs {
			t.Fatalf("state = %v, want input", m.state)
		}
		m.inputs[0].SetValue(arg)
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if cmd == nil {
			t.Fatal("expected call command")
		}
		m.Update(cmd())
		if m.state != stateShowResult {
			t.Fatalf("state = %v, want result", m.state)
		}
		if m.err != nil {
			t.Fatalf("call: %v", m.err)
		}
		result := m.result
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		return result
	}

	if got := call("7"); got != "14" {
		t.Errorf("double(7) = %s, want 14", got)
	}
	if got := call("-4"); got != "-8" {
		t.Errorf("double(-4) = %s, want -8", got)
	}
	if instantiations != 1 {
		t.Errorf("instantiations = %d, want 1", instantiations)
	}
}

func TestEntryPoint(t *testing.T) {
	sig := func(name string) *witsig.Signature { return &witsig.Signature{Name: name} }

	tests := []struct {
		sigs []*witsig.Signature
		want string
	}{
		{[]*witsig.Signature{sig("add"), sig("run")}, "run"},
		{[]*witsig.Signature{sig("main"), sig("_start")}, "_start"},
		{[]*witsig.Signature{sig("only")}, "only"},
		{[]*witsig.Signature{sig("a"), sig("b")}, ""},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := entryPoint(tt.sigs); got != tt.want {
			t.Errorf("entryPoint = %q, want %q", got, tt.want)
		}
	}
}
