package main

import (
	"os"

	"github.com/wonny/pvpforecast/cmd/pvp/commands"
)

// main is the entry point for the pvp CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/pvp [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
