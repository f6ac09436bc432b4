package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"
	"golang.org/x/term"

	"github.com/wippyai/wasm-loader/engine"
	"github.com/wippyai/wasm-loader/errors"
	"github.com/wippyai/wasm-loader/witsig"
)

type runOptions struct {
	funcName    string
	args        []string
	wit         string
	stubImports bool
	wasi        bool
	interactive bool
}

func newRunCommand(v *viper.Viper) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run <path>",
		Short: "Load a module and call one of its exports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, args[0], &opts)
		},
	}
	cmd.Flags().StringVar(&opts.funcName, "func", "", "Function to call (default: _start, run, main or the only function)")
	cmd.Flags().StringArrayVar(&opts.args, "arg", nil, "Argument to pass, repeatable")
	cmd.Flags().StringVar(&opts.wit, "wit", "", "WIT signatures for typed arguments, e.g. 'add: func(a: u32, b: u32) -> u32'")
	cmd.Flags().BoolVar(&opts.wasi, "wasi", false, "Provide WASI preview1 host functions")
	cmd.Flags().BoolVar(&opts.stubImports, "stub-imports", false, "Satisfy every function import with a stub returning zeros")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "Interactive mode with TUI")
	return cmd
}

func run(cmd *cobra.Command, v *viper.Viper, path string, opts *runOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if opts.interactive && !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.InvalidInput(errors.PhaseLoad, "interactive mode needs a terminal")
	}

	a, err := newApp(ctx, v, out, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	mod, err := a.loader.Compile(ctx, path)
	if err != nil {
		return err
	}

	imports := make(engine.Imports)
	if opts.wasi {
		imports[engine.WASINamespace] = engine.WASI()
	}
	if opts.stubImports {
		for ns, p := range stubImports(mod, a.log) {
			if _, ok := imports[ns]; !ok {
				imports[ns] = p
			}
		}
	}

	sigs, err := signatures(mod, opts.wit)
	if err != nil {
		return err
	}

	load := a.loader.MakeLoader(mod)

	if opts.interactive {
		return runInteractive(ctx, path, sigs, func() (*engine.Instance, error) {
			return load(ctx, path, imports)
		})
	}

	funcName := opts.funcName
	if funcName == "" {
		funcName = entryPoint(sigs)
		if funcName == "" {
			fmt.Fprintf(out, "No function specified and no common entry point found.\n")
			fmt.Fprintf(out, "Use --func to specify a function to call.\n")
			printModule(out, path, mod)
			return nil
		}
	}

	var sig *witsig.Signature
	for _, s := range sigs {
		if s.Name == funcName {
			sig = s
		}
	}
	if sig == nil {
		return errors.NotFound(errors.PhaseRuntime, "function", funcName)
	}

	params, err := sig.EncodeArgs(opts.args)
	if err != nil {
		return err
	}

	inst, err := load(ctx, path, imports)
	if err != nil {
		return err
	}
	defer inst.Close(ctx)

	fmt.Fprintf(out, "Calling %s\n", sig)
	results, err := inst.Call(ctx, funcName, params...)
	var exit *sys.ExitError
	if stderrors.As(err, &exit) && exit.ExitCode() == 0 {
		fmt.Fprintf(out, "Exited: 0\n")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Result: %v\n", formatResults(sig.DecodeResults(results)))
	return nil
}

// signatures returns a typed signature for every function export. Exports
// named in witText use those signatures; the rest are derived from their
// core types.
func signatures(mod *engine.Module, witText string) ([]*witsig.Signature, error) {
	var declared map[string]*witsig.Signature
	if witText != "" {
		var err error
		if declared, err = witsig.Parse(witText); err != nil {
			return nil, err
		}
	}

	var sigs []*witsig.Signature
	for _, exp := range mod.Exports() {
		if exp.Kind != api.ExternTypeFunc {
			continue
		}
		if sig, ok := declared[exp.Name]; ok {
			if err := sig.Check(exp); err != nil {
				return nil, err
			}
			sigs = append(sigs, sig)
			continue
		}
		sig, err := witsig.FromExport(exp)
		if err != nil {
			// Not callable from the command line.
			continue
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

func entryPoint(sigs []*witsig.Signature) string {
	for _, name := range []string{"_start", "run", "main"} {
		for _, s := range sigs {
			if s.Name == name {
				return name
			}
		}
	}
	if len(sigs) == 1 {
		return sigs[0].Name
	}
	return ""
}

func formatResults(vals []any) string {
	switch len(vals) {
	case 0:
		return "()"
	case 1:
		return fmt.Sprint(vals[0])
	default:
		return fmt.Sprint(vals)
	}
}
