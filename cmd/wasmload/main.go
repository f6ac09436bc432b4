package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand and may also be set through
// WASMLOAD_* environment variables.
var globalFlags = []struct {
	name  string
	usage string
}{
	{"config", "Path to a TOML config file"},
	{"base-url", "Base URL for relative module paths"},
	{"root", "Local directory serving bare and file: paths"},
	{"log-level", "Log level (debug, info, warn, error)"},
	{"log-format", "Log format (console, json)"},
	{"cache-dir", "Directory for the compilation cache"},
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("WASMLOAD")
	v.AutomaticEnv()
	// This normalizes "-" to an underscore in env names.
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	cmd := &cobra.Command{
		Use:           "wasmload",
		Short:         "Fetch, compile and run WebAssembly modules",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	for _, f := range globalFlags {
		cmd.PersistentFlags().String(f.name, "", f.usage)
		mustBindPFlag(v, f.name, cmd)
	}

	cmd.AddCommand(newInspectCommand(v), newRunCommand(v))
	return cmd
}

func mustBindPFlag(v *viper.Viper, key string, cmd *cobra.Command) {
	if err := v.BindPFlag(key, cmd.PersistentFlags().Lookup(key)); err != nil {
		panic(err)
	}
}
