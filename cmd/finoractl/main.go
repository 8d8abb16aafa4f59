// Command finoractl runs the engine's pure pieces offline against a backup
// file: classification, dashboard statistics, reports and calendar export.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"finora/internal/logger"
)

func main() {
	_ = godotenv.Load()
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
