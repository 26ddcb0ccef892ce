// Command contend runs the bounded buffer and resource ring simulator.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/contend/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
