package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess     = 0 // Every vendor evaluated cleanly
	ExitRiskFlagged = 1 // Run completed but at least one vendor was risk-flagged
	ExitError       = 2 // Configuration or runtime error
)

// RiskFlaggedError indicates that the evaluation ran to completion, but one
// or more vendors reached a risk-flagged consensus.
type RiskFlaggedError struct {
	Message string
}

func (e *RiskFlaggedError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		// Check error type to determine exit code
		var riskErr *RiskFlaggedError
		if errors.As(err, &riskErr) {
			os.Exit(ExitRiskFlagged)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
