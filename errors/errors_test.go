package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "transport with status",
			err: &Error{
				Phase:  PhaseFetch,
				Kind:   KindTransport,
				Path:   "/bin/sample.wasm",
				Status: 404,
				Detail: "unexpected status 404",
			},
			contains: []string{"[fetch]", "transport", "/bin/sample.wasm", "status 404"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseCompile,
				Kind:  KindCompile,
			},
			contains: []string{"[compile]", "compile"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseInstantiate,
				Kind:   KindInstantiation,
				Detail: "instantiate module",
				Cause:  errors.New("module[env] not instantiated"),
			},
			contains: []string{"[instantiate]", "instantiation", "caused by", "module[env]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Compile(cause)

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"transport", Transport("/a.wasm", 404, nil), ErrTransport, true},
		{"transport without status", Transport("/a.wasm", 0, errors.New("refused")), ErrTransport, true},
		{"compile", Compile(errors.New("bad magic")), ErrCompile, true},
		{"instantiate", Instantiation(errors.New("missing")), ErrInstantiate, true},
		{"compile is not transport", Compile(nil), ErrTransport, false},
		{"too large is compile", TooLarge("/a.wasm", 10), ErrCompile, true},
		{"wrapped with fmt", fmt.Errorf("outer: %w", Transport("/a.wasm", 500, nil)), ErrTransport, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseFetch, KindTransport).
		Path("https://example.com/a.wasm").
		Status(503).
		Value(3).
		Cause(cause).
		Detail("attempt %d of %d", 1, 1).
		Build()

	if err.Phase != PhaseFetch {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseFetch)
	}
	if err.Kind != KindTransport {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTransport)
	}
	if err.Path != "https://example.com/a.wasm" {
		t.Errorf("Path = %v", err.Path)
	}
	if err.Status != 503 {
		t.Errorf("Status = %v, want 503", err.Status)
	}
	if err.Value != 3 {
		t.Errorf("Value = %v, want 3", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "attempt 1 of 1" {
		t.Errorf("Detail = %v, want 'attempt 1 of 1'", err.Detail)
	}
}

func TestStatusOf(t *testing.T) {
	if got := StatusOf(Transport("/a.wasm", 404, nil)); got != 404 {
		t.Errorf("StatusOf = %d, want 404", got)
	}
	if got := StatusOf(fmt.Errorf("ctx: %w", Transport("/a.wasm", 502, nil))); got != 502 {
		t.Errorf("StatusOf wrapped = %d, want 502", got)
	}
	nested := Wrap(PhaseLoad, KindInvalidData, Transport("/a.wasm", 410, nil), "load")
	if got := StatusOf(nested); got != 410 {
		t.Errorf("StatusOf nested = %d, want 410", got)
	}
	if got := StatusOf(errors.New("plain")); got != 0 {
		t.Errorf("StatusOf plain = %d, want 0", got)
	}
	if got := StatusOf(nil); got != 0 {
		t.Errorf("StatusOf nil = %d, want 0", got)
	}
}

func TestMissingImportsError(t *testing.T) {
	t.Run("single import", func(t *testing.T) {
		err := NewMissingImportsError([]string{"env#log"})
		if len(err.Imports) != 1 {
			t.Fatalf("expected 1 import, got %d", len(err.Imports))
		}
		if err.Imports[0].Namespace != "env" {
			t.Errorf("namespace = %q, want env", err.Imports[0].Namespace)
		}
		if err.Imports[0].Function != "log" {
			t.Errorf("function = %q, want log", err.Imports[0].Function)
		}
	})

	t.Run("multiple namespaces grouped", func(t *testing.T) {
		err := NewMissingImportsError([]string{
			"env#log",
			"wasi_snapshot_preview1#fd_write",
			"env#abort",
		})
		msg := err.Error()
		if !strings.Contains(msg, "missing 3 import(s)") {
			t.Errorf("error should contain count, got: %s", msg)
		}
		if !strings.Contains(msg, "env:") {
			t.Errorf("error should group by namespace")
		}
		if !strings.Contains(msg, "wasi_snapshot_preview1:") {
			t.Errorf("error should contain second namespace")
		}
		if strings.Count(msg, "env:") != 1 {
			t.Errorf("namespace should appear once, got: %s", msg)
		}
	})

	t.Run("empty imports", func(t *testing.T) {
		err := NewMissingImportsError([]string{})
		if !strings.Contains(err.Error(), "no imports specified") {
			t.Errorf("empty error should have specific message, got: %s", err.Error())
		}
	})

	t.Run("errors.Is through instantiation", func(t *testing.T) {
		err := Instantiation(NewMissingImportsError([]string{"ns#fn"}))
		if !errors.Is(err, &MissingImportsError{}) {
			t.Error("errors.Is should match MissingImportsError")
		}
		if !errors.Is(err, ErrInstantiate) {
			t.Error("errors.Is should match ErrInstantiate")
		}
	})
}
