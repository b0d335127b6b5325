package main

import (
	"os"

	"github.com/dserban/dern/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
