package main

import (
	"os"

	"github.com/chainforge/devnode/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
