package main

import (
	"os"

	"github.com/crypgo-dev/crypgo-web/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
