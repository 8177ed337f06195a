// Package main provides the entrypoint for echo-api.
package main

import (
	"os"

	"github.com/isometry/echo-api/cmd"
)

func main() {
	if err := cmd.New().Execute(); err != nil {
		os.Exit(1)
	}
}
