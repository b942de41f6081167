package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess    = 0 // Evaluation passed the quality gate
	ExitGateFailed = 1 // Best strategy scored below --min-score
	ExitError      = 2 // Configuration or runtime error
)

// QualityGateError indicates that the evaluation ran successfully, but the
// best strategy's overall score is below the required minimum.
type QualityGateError struct {
	Strategy string
	Score    float64
	Min      float64
}

func (e *QualityGateError) Error() string {
	return fmt.Sprintf("quality gate failed: best strategy %s scored %.3f, below the required %.3f", e.Strategy, e.Score, e.Min)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if err := execute(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitCode(err)
	}
	return ExitSuccess
}

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var gateErr *QualityGateError
	if errors.As(err, &gateErr) {
		return ExitGateFailed
	}
	// All other errors are configuration/runtime errors
	return ExitError
}
