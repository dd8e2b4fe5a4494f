package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/migratio-labs/ragserve/internal/adapters/driving/cli"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	// A .env in the working directory is a convenience for development;
	// missing files are fine.
	_ = godotenv.Load()

	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
