// Command termdict builds and queries term dictionary segments.
package main

import (
	"fmt"
	"os"

	"github.com/hupe1980/termdict/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
