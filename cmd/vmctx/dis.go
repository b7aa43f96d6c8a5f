package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/risor-io/vmctx"
	"github.com/risor-io/vmctx/bytecode"
	"github.com/risor-io/vmctx/dis"
	"github.com/risor-io/vmctx/internal/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var disCmd = &cobra.Command{
	Use:   "dis [file]",
	Short: "Disassemble a script module",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var mod *bytecode.Module
		if path, _ := cmd.Flags().GetString("compiled"); path != "" {
			if len(args) > 0 {
				return errors.New("multiple input sources specified")
			}
			m, err := readModule(path)
			if err != nil {
				return err
			}
			mod = m
		} else {
			section, err := getSection(cmd, args)
			if err != nil {
				return err
			}
			if mod, err = compileForListing(cmd.Context(), section); err != nil {
				return err
			}
		}
		w := cmd.OutOrStdout()
		if stats, _ := cmd.Flags().GetBool("stats"); stats {
			return writeStats(w, bytecode.ModuleStats(mod), viper.GetString("output"))
		}
		funcName, _ := cmd.Flags().GetString("func")
		return listModule(w, mod, funcName)
	},
}

func init() {
	disCmd.Flags().Bool("stdin", false, "Read the script from stdin")
	disCmd.Flags().String("func", "", "Function to disassemble, such as main or A::Test")
	disCmd.Flags().String("compiled", "", "Disassemble a module written by the build command")
	disCmd.Flags().Bool("stats", false, "Print module statistics instead of a listing")
}

// compileForListing compiles the script without running it. Calls that do
// not resolve to script functions are assumed to target host functions.
func compileForListing(ctx context.Context, section vmctx.Section) (*bytecode.Module, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return vmctx.Compile(ctx, nil, "main", section)
}

func disassemble(ctx context.Context, w io.Writer, filename, code, funcName string) error {
	mod, err := compileForListing(ctx, vmctx.Section{Name: filename, Code: code})
	if err != nil {
		return err
	}
	return listModule(w, mod, funcName)
}

func listModule(w io.Writer, mod *bytecode.Module, funcName string) error {
	if funcName == "" {
		return dis.PrintModule(mod, w)
	}
	var fn *bytecode.Function
	mod.EachFunction(func(f *bytecode.Function) {
		if fn == nil && (f.QualifiedName() == funcName || f.Name() == funcName) {
			fn = f
		}
	})
	if fn == nil {
		return fmt.Errorf("function %q not found", funcName)
	}
	return dis.PrintFunction(fn, w)
}

func writeStats(w io.Writer, stats bytecode.Stats, format string) error {
	if format == "json" {
		out, err := getOutputJSON(stats)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	}
	t := table.NewTable(w).
		WithHeader([]string{"STAT", "COUNT"}).
		WithColumnAlignment([]table.Alignment{table.AlignLeft, table.AlignRight})
	for _, row := range []struct {
		name  string
		count int
	}{
		{"instructions", stats.InstructionCount},
		{"constants", stats.ConstantCount},
		{"globals", stats.GlobalCount},
		{"functions", stats.FunctionCount},
		{"classes", stats.ClassCount},
	} {
		t.Append([]string{row.name, fmt.Sprint(row.count)})
	}
	return t.Render()
}
