package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/risor-io/vmctx"
	"github.com/risor-io/vmctx/bytecode"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build [file]",
	Short: "Compile a script module to JSON bytecode",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		section, err := getSection(cmd, args)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if path, _ := cmd.Flags().GetString("out"); path != "" && path != "-" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		return buildModule(cmd.Context(), w, section)
	},
}

func init() {
	buildCmd.Flags().Bool("stdin", false, "Read the script from stdin")
	buildCmd.Flags().StringP("out", "o", "", "Output file (default is stdout)")
}

// compileSection compiles a script against the builtin host functions.
func compileSection(ctx context.Context, section vmctx.Section) (*bytecode.Module, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := zerolog.Nop()
	e, err := newEngine(io.Discard, logger)
	if err != nil {
		return nil, err
	}
	defer shutdown(e, logger)
	return vmctx.Compile(ctx, e, "main", section)
}

func buildModule(ctx context.Context, w io.Writer, section vmctx.Section) error {
	mod, err := compileSection(ctx, section)
	if err != nil {
		return err
	}
	data, err := bytecode.MarshalModule(mod)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// readModule loads a module written by the build command.
func readModule(path string) (*bytecode.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	mod, err := bytecode.UnmarshalModule(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mod, nil
}
