package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wasm-loader/config"
	"github.com/wippyai/wasm-loader/engine"
	"github.com/wippyai/wasm-loader/errors"
	"github.com/wippyai/wasm-loader/fetch"
	"github.com/wippyai/wasm-loader/loader"
)

// app wires the configured engine, fetcher and loader for one command run.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	eng    *engine.Engine
	loader *loader.Loader
}

// loadConfig reads the config file, if any, and applies flag and
// environment overrides on top of it.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg := config.New()
	if path := v.GetString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if s := v.GetString("base-url"); s != "" {
		cfg.Fetch.BaseURL = s
	}
	if s := v.GetString("root"); s != "" {
		cfg.Fetch.Root = s
	}
	if s := v.GetString("cache-dir"); s != "" {
		cfg.Engine.CompilationCacheDir = s
	}
	if s := v.GetString("log-format"); s != "" {
		cfg.Log.Format = s
	}
	if s := v.GetString("log-level"); s != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(s)); err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log-level")
		}
		cfg.Log.Level = level
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp builds the app. Guest WASI output goes to out and errOut, logs go
// to errOut.
func newApp(ctx context.Context, v *viper.Viper, out, errOut io.Writer) (*app, error) {
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, err
	}

	log, err := cfg.Log.New(errOut)
	if err != nil {
		return nil, err
	}
	engine.SetLogger(log.Named("engine"))

	ec := cfg.EngineConfig()
	ec.Stdout = out
	ec.Stderr = errOut
	eng, err := engine.NewWithConfig(ctx, ec)
	if err != nil {
		return nil, err
	}

	f, err := newFetcher(cfg.Fetch)
	if err != nil {
		eng.Close(ctx)
		return nil, err
	}

	return &app{
		cfg: cfg,
		log: log,
		eng: eng,
		loader: loader.New(f, eng,
			loader.WithLogger(log.Named("loader")),
			loader.WithMaxModuleBytes(int64(cfg.Fetch.MaxBytes)),
		),
	}, nil
}

// newFetcher routes http(s) URLs to the network and file: URLs to the local
// root. Bare paths go to the network when a base URL is set, otherwise to
// the local root.
func newFetcher(c config.Fetch) (fetch.Fetcher, error) {
	opts := []fetch.HTTPOption{
		fetch.WithBaseURL(c.BaseURL),
		fetch.WithTimeout(time.Duration(c.Timeout)),
	}
	if c.UserAgent != "" {
		opts = append(opts, fetch.WithUserAgent(c.UserAgent))
	}
	h, err := fetch.NewHTTP(opts...)
	if err != nil {
		return nil, err
	}

	root := c.Root
	if root == "" {
		root = "."
	}
	dir := fetch.NewDir(os.DirFS(root))

	s := fetch.Schemes{
		"http":  h,
		"https": h,
		"file":  dir,
		"":      dir,
	}
	if c.BaseURL != "" {
		s[""] = h
	}
	return s, nil
}

func (a *app) Close(ctx context.Context) error {
	return multierr.Combine(a.eng.Close(ctx), ignoreSyncError(a.log.Sync()))
}

// ignoreSyncError drops the error zap reports when syncing a terminal.
func ignoreSyncError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*os.PathError); ok {
		return nil
	}
	return err
}
