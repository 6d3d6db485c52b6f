package main

import (
	"os"

	"github.com/beetlebugorg/benchmap/cmd/benchmap/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
