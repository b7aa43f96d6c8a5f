package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/risor-io/vmctx/errz"
)

// errScriptFailed is returned by commands after a script exception has been
// reported.
var errScriptFailed = errors.New("script failed")

// writeException writes a report of exc in the given format.
func writeException(w io.Writer, exc *errz.Exception, format string) error {
	switch strings.ToLower(format) {
	case "json":
		data, err := getOutputJSON(exc.Report())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "", "text":
		lines := strings.Split(strings.TrimRight(exc.FriendlyErrorMessage(), "\n"), "\n")
		fmt.Fprintln(w, red(lines[0]))
		for _, line := range lines[1:] {
			switch {
			case strings.HasPrefix(line, " | "):
				fmt.Fprintln(w, faint(line))
			case strings.HasPrefix(line, "suppressed: "):
				fmt.Fprintln(w, yellow(line))
			default:
				fmt.Fprintln(w, line)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
