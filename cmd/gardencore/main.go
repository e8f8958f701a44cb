// Command gardencore generates native planting designs and serves the design API.
package main

import (
	"fmt"
	"os"

	"gardencore/internal/cli"
)

func main() {
	if err := cli.RootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
