// Command schemagen compiles entity declarations into SQLite adapter packages.
package main

import (
	"os"

	"github.com/syssam/schemagen/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
