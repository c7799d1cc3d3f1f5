package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}

func run() error {
	return createRootCommand().Execute()
}
