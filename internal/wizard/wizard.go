// Package wizard collects human override decisions, interactively when a
// terminal is attached.
package wizard

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/piyushigoyal/claimtriage/internal/models"
)

// StrategyHumanOverride is the strategy name carried by override decisions.
const StrategyHumanOverride = "human_override"

// Override is a reviewer's replacement labelling for a claim.
type Override struct {
	ClaimID  string
	Severity models.Severity
	Action   models.Action
	Reason   string
	Reviewer string
}

// Complete reports whether every required field is set, so no form is needed.
func (o Override) Complete() bool {
	return o.ClaimID != "" && o.Severity != "" && o.Action != "" && strings.TrimSpace(o.Reason) != ""
}

// Validate checks the override against the label vocabularies.
func (o Override) Validate() error {
	var errs []error
	if strings.TrimSpace(o.ClaimID) == "" {
		errs = append(errs, errors.New("claim id is required"))
	}
	if !models.ValidSeverity(o.Severity) {
		errs = append(errs, fmt.Errorf("invalid severity %q", o.Severity))
	}
	if !models.ValidAction(o.Action) {
		errs = append(errs, fmt.Errorf("invalid action %q", o.Action))
	}
	if strings.TrimSpace(o.Reason) == "" {
		errs = append(errs, errors.New("reason is required"))
	}
	return errors.Join(errs...)
}

// Apply builds the decision that replaces original.
func (o Override) Apply(original models.Decision) models.Decision {
	return models.Decision{
		ID:        uuid.NewString(),
		ClaimID:   o.ClaimID,
		Strategy:  StrategyHumanOverride,
		Severity:  o.Severity,
		Action:    o.Action,
		Rationale: o.Reason,
		RiskScore: original.RiskScore,
		Timestamp: time.Now().UTC(),
		Success:   true,
	}
}

// RunOverrideForm runs an interactive huh form to complete o. Fields that
// are already set pre-populate the form.
func RunOverrideForm(in io.Reader, out io.Writer, o Override) (*Override, error) {
	var (
		claimID  = o.ClaimID
		severity = string(o.Severity)
		action   = string(o.Action)
		reason   = o.Reason
		reviewer = o.Reviewer
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Claim ID").
				Placeholder("CLM-00001").
				Value(&claimID).
				Validate(required("claim id")),
			huh.NewSelect[string]().
				Title("Severity").
				Options(severityOptions()...).
				Value(&severity),
			huh.NewSelect[string]().
				Title("Action").
				Options(actionOptions()...).
				Value(&action),
			huh.NewText().
				Title("Reason").
				Description("Why is the automated decision being replaced?").
				Value(&reason).
				Validate(required("reason")),
			huh.NewInput().
				Title("Reviewer").
				Placeholder("adjuster name").
				Value(&reviewer),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("override form failed: %w", err)
	}

	result := &Override{
		ClaimID:  strings.TrimSpace(claimID),
		Severity: models.Severity(severity),
		Action:   models.Action(action),
		Reason:   strings.TrimSpace(reason),
		Reviewer: strings.TrimSpace(reviewer),
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func severityOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], len(models.Severities))
	for i, s := range models.Severities {
		opts[i] = huh.NewOption(string(s), string(s))
	}
	return opts
}

func actionOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], len(models.Actions))
	for i, a := range models.Actions {
		opts[i] = huh.NewOption(string(a), string(a))
	}
	return opts
}
