package main

import (
	"os"

	"github.com/yoke233/metting/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
