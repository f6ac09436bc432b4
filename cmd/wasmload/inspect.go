package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wippyai/wasm-loader/engine"
)

func newInspectCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <path>",
		Short: "Fetch and compile a module, then list its imports and exports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, v, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			mod, err := a.loader.Compile(ctx, args[0])
			if err != nil {
				return err
			}
			printModule(cmd.OutOrStdout(), args[0], mod)
			return nil
		},
	}
}

func printModule(w io.Writer, path string, mod *engine.Module) {
	fmt.Fprintf(w, "Module: %s\n", path)
	fmt.Fprintf(w, "Size: %d bytes\n", mod.Size())

	fmt.Fprintf(w, "\nImports: %d\n", len(mod.Imports()))
	for _, imp := range mod.Imports() {
		fmt.Fprintf(w, "  %s\n", imp)
	}

	fmt.Fprintf(w, "\nExports: %d\n", len(mod.Exports()))
	for _, exp := range mod.Exports() {
		fmt.Fprintf(w, "  %s\n", exp)
	}
}
