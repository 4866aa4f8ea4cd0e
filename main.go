package main

import (
	"os"

	"github.com/bookquill/bookquill/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
