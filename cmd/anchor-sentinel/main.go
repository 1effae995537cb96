package main

import (
	"os"

	"github.com/Ramprasad4121/anchor-sentinel/internal/app"
)

func main() {
	if err := app.BuildRoot().Execute(); err != nil {
		os.Exit(1)
	}
}
