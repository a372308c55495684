// Command convert runs the bookrestore pipeline over one PDF, producing a
// corrected PDF (spec section 6). Grounded on the teacher's cmd/ocr/main.go:
// a thin main that only wires version metadata and delegates to cobra.
package main

import (
	"fmt"
	"os"

	"github.com/inkwell-labs/bookrestore/cmd/convert/cmd"
	"github.com/inkwell-labs/bookrestore/internal/version"
)

func main() {
	v, commit, date := version.Info()
	cmd.RootCmd().Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, commit, date)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	if c, ok := cmd.ExitCode(err); ok {
		return c
	}
	return 1
}
