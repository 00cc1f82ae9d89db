package main

import (
	"os"

	"github.com/masubs/masubs/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
