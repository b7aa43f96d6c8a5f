package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/risor-io/vmctx/builtins"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "List the builtin host functions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeDocs(cmd.OutOrStdout(), viper.GetString("output"))
	},
}

func writeDocs(w io.Writer, format string) error {
	docs := builtins.Docs()
	switch strings.ToLower(format) {
	case "json":
		data, err := getOutputJSON(docs)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
	case "", "text":
		for _, spec := range docs {
			fmt.Fprintln(w, spec.Declaration)
			fmt.Fprintf(w, "    %s\n", spec.Doc)
			if spec.Example != "" {
				fmt.Fprintf(w, "    %s\n", faint(spec.Example))
			}
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
	return nil
}
