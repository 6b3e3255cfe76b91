package main

import (
	"fmt"
	"os"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
