// Package main is the entry point for the tubescout CLI.
package main

import (
	"context"
	"os"
)

// version is set at build time via ldflags
var version = "dev"

func main() {
	os.Exit(execute(context.Background(), defaultApp(), os.Args[1:]))
}
