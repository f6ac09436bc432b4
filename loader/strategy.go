package loader

import (
	"context"
	"io"

	"github.com/wippyai/wasm-loader/engine"
	"github.com/wippyai/wasm-loader/errors"
	"github.com/wippyai/wasm-loader/fetch"
)

// Compiler compiles binaries and instantiates compiled modules.
// *engine.Engine implements it.
type Compiler interface {
	Compile(ctx context.Context, wasm []byte) (*engine.Module, error)
	Instantiate(ctx context.Context, m *engine.Module, imports engine.Imports) (*engine.Instance, error)
}

// StreamCompiler is a Compiler that can consume a response body directly.
type StreamCompiler interface {
	Compiler
	CompileReader(ctx context.Context, r io.Reader) (*engine.Module, error)
}

// Strategy turns a successful response into a compiled module.
type Strategy interface {
	Name() string
	Compile(ctx context.Context, resp *fetch.Response) (*engine.Module, error)
}

// SelectStrategy picks streaming compilation when c supports it and falls
// back to buffering the whole payload otherwise.
func SelectStrategy(c Compiler, maxBytes int64) Strategy {
	if sc, ok := c.(StreamCompiler); ok {
		return Streaming(sc)
	}
	return Buffered(c, maxBytes)
}

type streaming struct {
	c StreamCompiler
}

// Streaming compiles from the response body as it arrives.
func Streaming(c StreamCompiler) Strategy {
	return streaming{c: c}
}

func (streaming) Name() string { return "streaming" }

func (s streaming) Compile(ctx context.Context, resp *fetch.Response) (*engine.Module, error) {
	return s.c.CompileReader(ctx, resp.Body)
}

type buffered struct {
	c        Compiler
	maxBytes int64
}

// Buffered reads the full payload into memory and then compiles it.
// maxBytes <= 0 means engine.DefaultMaxModuleBytes.
func Buffered(c Compiler, maxBytes int64) Strategy {
	if maxBytes <= 0 {
		maxBytes = engine.DefaultMaxModuleBytes
	}
	return buffered{c: c, maxBytes: maxBytes}
}

func (buffered) Name() string { return "buffered" }

func (b buffered) Compile(ctx context.Context, resp *fetch.Response) (*engine.Module, error) {
	if resp.Size > b.maxBytes {
		return nil, errors.TooLarge(resp.Path, b.maxBytes)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, b.maxBytes+1))
	if err != nil {
		return nil, errors.Transport(resp.Path, 0, err)
	}
	if int64(len(data)) > b.maxBytes {
		return nil, errors.TooLarge(resp.Path, b.maxBytes)
	}
	return b.c.Compile(ctx, data)
}
