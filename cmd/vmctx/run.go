package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/risor-io/vmctx"
	"github.com/risor-io/vmctx/bytecode"
	"github.com/risor-io/vmctx/errz"
	"github.com/risor-io/vmctx/object"
	"github.com/risor-io/vmctx/vm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Build a script module and call its entry function",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, _ := cmd.Flags().GetString("entry")
		if path, _ := cmd.Flags().GetString("compiled"); path != "" {
			if len(args) > 0 {
				return errors.New("multiple input sources specified")
			}
			return runCompiled(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), path, entry)
		}
		section, err := getSection(cmd, args)
		if err != nil {
			return err
		}
		return runScript(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), section, entry)
	},
}

var execCmd = &cobra.Command{
	Use:   "exec [code]",
	Short: "Execute statements, optionally against a script module",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, _ := cmd.Flags().GetString("code")
		if len(args) > 0 {
			if code != "" {
				return errors.New("multiple input sources specified")
			}
			code = args[0]
		}
		if code == "" {
			return errors.New("no code specified")
		}
		var sections []vmctx.Section
		if path, _ := cmd.Flags().GetString("with"); path != "" {
			section, err := readSection(path)
			if err != nil {
				return err
			}
			sections = append(sections, section)
		}
		return execString(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), code, sections)
	},
}

func init() {
	runCmd.Flags().Bool("stdin", false, "Read the script from stdin")
	runCmd.Flags().String("entry", "main", "Entry function")
	runCmd.Flags().String("compiled", "", "Run a module written by the build command")
	execCmd.Flags().StringP("code", "c", "", "Statements to execute")
	execCmd.Flags().String("with", "", "Script file whose module the code runs against")
}

func readSection(path string) (vmctx.Section, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return vmctx.Section{}, err
	}
	return vmctx.Section{Name: path, Code: string(data)}, nil
}

// getSection reads the script from the file argument or from stdin.
func getSection(cmd *cobra.Command, args []string) (vmctx.Section, error) {
	stdin, _ := cmd.Flags().GetBool("stdin")
	switch {
	case stdin && len(args) > 0:
		return vmctx.Section{}, errors.New("multiple input sources specified")
	case stdin:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return vmctx.Section{}, err
		}
		return vmctx.Section{Name: "stdin", Code: string(data)}, nil
	case len(args) > 0:
		return readSection(args[0])
	default:
		return vmctx.Section{}, errors.New("no script specified")
	}
}

// moduleLoader puts the module to run into the engine.
type moduleLoader func(ctx context.Context, e *vm.Engine) (*bytecode.Module, error)

func runScript(parent context.Context, stdout, stderr io.Writer, section vmctx.Section, entry string) error {
	return runModule(parent, stdout, stderr, entry, func(ctx context.Context, e *vm.Engine) (*bytecode.Module, error) {
		return vmctx.Build(ctx, e, "main", section)
	})
}

// runCompiled runs a module read from a JSON bytecode file.
func runCompiled(parent context.Context, stdout, stderr io.Writer, path, entry string) error {
	mod, err := readModule(path)
	if err != nil {
		return err
	}
	return runModule(parent, stdout, stderr, entry, func(ctx context.Context, e *vm.Engine) (*bytecode.Module, error) {
		if err := vmctx.Load(ctx, e, mod); err != nil {
			return nil, err
		}
		return mod, nil
	})
}

func runModule(parent context.Context, stdout, stderr io.Writer, entry string, load moduleLoader) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := executionContext(parent)
	defer cancel()

	logger := newLogger(stderr)
	e, err := newEngine(stdout, logger)
	if err != nil {
		return err
	}
	defer shutdown(e, logger)

	mod, err := load(ctx, e)
	if err != nil {
		return reportError(stderr, err)
	}
	fn := mod.FunctionByName(entry)
	if fn == nil {
		return fmt.Errorf("function %q not found", entry)
	}
	if fn.ParamCount() > 0 {
		return fmt.Errorf("entry function %s must not take arguments", fn.Declaration())
	}

	xctx := e.CreateContext()
	defer xctx.Release()
	if err := xctx.Prepare(fn); err != nil {
		return err
	}
	outcome, err := xctx.Execute(ctx)
	if err != nil {
		return err
	}
	return finish(stdout, stderr, xctx, outcome, fn)
}

func execString(parent context.Context, stdout, stderr io.Writer, code string, sections []vmctx.Section) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := executionContext(parent)
	defer cancel()

	logger := newLogger(stderr)
	e, err := newEngine(stdout, logger)
	if err != nil {
		return err
	}
	defer shutdown(e, logger)

	var opts []vmctx.Option
	if len(sections) > 0 {
		mod, err := vmctx.Build(ctx, e, "main", sections...)
		if err != nil {
			return reportError(stderr, err)
		}
		opts = append(opts, vmctx.WithModule(mod))
	}
	xctx := e.CreateContext()
	defer xctx.Release()
	opts = append(opts, vmctx.WithContext(xctx))

	outcome, err := vmctx.ExecuteString(ctx, e, code, opts...)
	if err != nil {
		return reportError(stderr, err)
	}
	return finish(stdout, stderr, xctx, outcome, xctx.Function())
}

// finish reports the outcome of an execution.
func finish(stdout, stderr io.Writer, xctx *vm.Context, outcome vm.Outcome, fn *bytecode.Function) error {
	for _, fault := range xctx.DestructorFaults() {
		fmt.Fprintln(stderr, yellow("destructor fault: "+fault.Error()))
	}
	switch outcome {
	case vm.OutcomeFinished:
		if fn != nil && !fn.Returns().IsVoid() {
			if result := xctx.ReturnValue(); result != nil && !object.IsNull(result) {
				fmt.Fprintln(stdout, result.Inspect())
			}
		}
		return nil
	case vm.OutcomeException:
		if err := writeException(stderr, xctx.ExceptionInfo(), viper.GetString("output")); err != nil {
			return err
		}
		return errScriptFailed
	case vm.OutcomeAborted:
		return errors.New("script aborted")
	default:
		return fmt.Errorf("script stopped: %s", outcome)
	}
}

// reportError writes exceptions raised while building a module as reports
// and returns other errors unchanged.
func reportError(stderr io.Writer, err error) error {
	var exc *errz.Exception
	if !errors.As(err, &exc) {
		return err
	}
	if werr := writeException(stderr, exc, viper.GetString("output")); werr != nil {
		return werr
	}
	return errScriptFailed
}
