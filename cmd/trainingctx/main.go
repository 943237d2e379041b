package main

import (
	"fmt"
	"os"

	"github.com/Volt-Athletics/state-management-tests/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "trainingctx: %v\n", err)
		os.Exit(1)
	}
}
