package main

import (
	"os"

	"github.com/gridopt/stochuc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
