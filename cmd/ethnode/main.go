package main

import (
	"os"
	"path/filepath"

	"github.com/DOIDFoundation/ethnode/cmd/ethnode/commands"

	"github.com/cometbft/cometbft/libs/cli"
)

func main() {
	cmd := cli.PrepareBaseCmd(commands.RootCmd, "ETHNODE", os.ExpandEnv(filepath.Join("$HOME", ".ethnode")))

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
