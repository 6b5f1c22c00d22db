// Command steuerkernctl is the thin host-side entrypoint that drives the
// engine pipeline against local CSV exports for manual verification and
// scripting. It is pure wiring over internal/pipeline, mirroring how
// RumoClaro keeps main.go as pure wiring over its processors package — no
// tax logic lives here.
package main

import (
	"fmt"
	"os"

	"github.com/steuerkern/engine/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.L.WithError(err).Error("steuerkernctl: command failed")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
