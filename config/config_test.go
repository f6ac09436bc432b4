package config

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wasm-loader/errors"
)

func TestConfig_Parse(t *testing.T) {
	c, err := Parse(`
[fetch]
base-url = "https://cdn.example.com/"
timeout = "5s"
user-agent = "wasmload-test"
max-bytes = "2m"
root = "/srv/wasm"

[engine]
memory-limit-pages = 16
compilation-cache-dir = "/tmp/wasmload"
threads = true
close-on-context-done = true

[log]
format = "json"
level = "debug"
`)
	if err != nil {
		t.Fatal(err)
	}

	if c.Fetch.BaseURL != "https://cdn.example.com/" {
		t.Fatalf("unexpected base url: %s", c.Fetch.BaseURL)
	} else if time.Duration(c.Fetch.Timeout) != 5*time.Second {
		t.Fatalf("unexpected timeout: %v", c.Fetch.Timeout)
	} else if c.Fetch.UserAgent != "wasmload-test" {
		t.Fatalf("unexpected user agent: %s", c.Fetch.UserAgent)
	} else if c.Fetch.MaxBytes != 2<<20 {
		t.Fatalf("unexpected max bytes: %d", c.Fetch.MaxBytes)
	} else if c.Fetch.Root != "/srv/wasm" {
		t.Fatalf("unexpected root: %s", c.Fetch.Root)
	} else if c.Engine.MemoryLimitPages != 16 {
		t.Fatalf("unexpected memory limit: %d", c.Engine.MemoryLimitPages)
	} else if c.Engine.CompilationCacheDir != "/tmp/wasmload" {
		t.Fatalf("unexpected cache dir: %s", c.Engine.CompilationCacheDir)
	} else if !c.Engine.Threads || !c.Engine.CloseOnContextDone {
		t.Fatalf("unexpected engine flags: %+v", c.Engine)
	} else if c.Log.Format != "json" || c.Log.Level != zapcore.DebugLevel {
		t.Fatalf("unexpected log config: %+v", c.Log)
	}

	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	ec := c.EngineConfig()
	if ec.MaxModuleBytes != 2<<20 || ec.MemoryLimitPages != 16 || !ec.EnableThreads {
		t.Fatalf("unexpected engine config: %+v", ec)
	}
}

func TestConfig_Defaults(t *testing.T) {
	c, err := Parse("")
	if err != nil {
		t.Fatal(err)
	}
	if time.Duration(c.Fetch.Timeout) != DefaultTimeout {
		t.Fatalf("unexpected timeout: %v", c.Fetch.Timeout)
	}
	if c.Fetch.MaxBytes != DefaultMaxBytes {
		t.Fatalf("unexpected max bytes: %d", c.Fetch.MaxBytes)
	}
	if c.Log.Format != "console" || c.Log.Level != zapcore.InfoLevel {
		t.Fatalf("unexpected log config: %+v", c.Log)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected validation fail from defaults: %s", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative base url", func(c *Config) { c.Fetch.BaseURL = "/bin" }},
		{"negative timeout", func(c *Config) { c.Fetch.Timeout = -1 }},
		{"zero max bytes", func(c *Config) { c.Fetch.MaxBytes = 0 }},
		{"memory limit", func(c *Config) { c.Engine.MemoryLimitPages = 65537 }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			tt.mutate(c)
			err := c.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Phase != errors.PhaseConfig {
				t.Fatalf("err = %v, want config phase error", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wasmload.toml")
	if err := os.WriteFile(path, []byte("[fetch]\nmax-bytes = 4096\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Fetch.MaxBytes != 4096 {
		t.Fatalf("unexpected max bytes: %d", c.Fetch.MaxBytes)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := Parse("[fetch\n"); err == nil {
		t.Fatal("expected error for malformed toml")
	}
}

func TestConfig_WriteRoundTrip(t *testing.T) {
	c := New()
	c.Fetch.BaseURL = "https://cdn.example.com/"
	c.Fetch.Timeout = Duration(time.Minute)

	var buf bytes.Buffer
	if err := c.Write(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Parse(buf.String())
	if err != nil {
		t.Fatalf("parse written config: %v\n%s", err, buf.String())
	}
	if got.Fetch != c.Fetch {
		t.Fatalf("fetch = %+v, want %+v", got.Fetch, c.Fetch)
	}
}

func TestSize_UnmarshalText(t *testing.T) {
	tests := []struct {
		in   string
		want Size
		err  bool
	}{
		{"1024", 1024, false},
		{"4k", 4 << 10, false},
		{"16M", 16 << 20, false},
		{"1g", 1 << 30, false},
		{"", 0, false},
		{"abc", 0, true},
		{"9999999999g", 0, true},
	}
	for _, tt := range tests {
		var s Size
		err := s.UnmarshalText([]byte(tt.in))
		if tt.err {
			if err == nil {
				t.Errorf("%q: expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: %v", tt.in, err)
		} else if s != tt.want {
			t.Errorf("%q = %d, want %d", tt.in, s, tt.want)
		}
	}
}
