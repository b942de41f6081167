package main

import (
	"fmt"
	"io"
	"time"

	"github.com/piyushigoyal/claimtriage/internal/orchestration"
)

func simpleProgressListener(w io.Writer) orchestration.ProgressListener {
	return func(event orchestration.ProgressEvent) {
		switch event.EventType {
		case orchestration.EventStrategyStart:
			fmt.Fprintf(w, "Evaluating %s on %d claims...\n", event.Strategy, event.TotalClaims)
		case orchestration.EventProgress:
			fmt.Fprintf(w, "  Processed %d/%d claims\n", event.Completed, event.TotalClaims)
		case orchestration.EventStrategyComplete:
			printStrategySummary(w, event)
		case orchestration.EventEvaluationStopped:
			fmt.Fprintf(w, "Evaluation stopped early: %v\n", event.Details["reason"])
		}
	}
}

func verboseProgressListener(w io.Writer) orchestration.ProgressListener {
	simple := simpleProgressListener(w)
	return func(event orchestration.ProgressEvent) {
		switch event.EventType {
		case orchestration.EventEvaluationStart:
			fmt.Fprintf(w, "Starting evaluation %v of %d strategies on %d claims\n\n",
				event.Details["run_id"], event.Details["strategies"], event.TotalClaims)
		case orchestration.EventClaimComplete:
			icon := "✓"
			if !event.Success {
				icon = "✗"
			}
			duration := time.Duration(event.DurationMs) * time.Millisecond
			fmt.Fprintf(w, "  %s [%d/%d] %s (%v)\n", icon, event.Completed, event.TotalClaims, event.ClaimID, duration)
		case orchestration.EventEvaluationComplete:
			duration := time.Duration(event.DurationMs) * time.Millisecond
			fmt.Fprintf(w, "Evaluation completed in %v\n\n", duration)
		default:
			simple(event)
		}
	}
}

func printStrategySummary(w io.Writer, event orchestration.ProgressEvent) {
	sevAcc, _ := event.Details["severity_accuracy"].(float64)
	actAcc, _ := event.Details["action_accuracy"].(float64)
	overall, _ := event.Details["overall_score"].(float64)
	failures, _ := event.Details["failures"].(int)
	fmt.Fprintf(w, "✓ %s: severity %.1f%%, action %.1f%%, overall %.3f", event.Strategy, sevAcc*100, actAcc*100, overall)
	if failures > 0 {
		fmt.Fprintf(w, ", %d failed", failures)
	}
	fmt.Fprintln(w)
}
