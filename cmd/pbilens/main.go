// Package main provides the pbilens command-line interface.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/leapstack-labs/pbilens/internal/cli"
)

func main() {
	// A .env file is optional; values already in the environment win.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
