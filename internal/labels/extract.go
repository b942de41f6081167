// Package labels pulls severity and action labels out of free-form model
// output.
package labels

import (
	"fmt"
	"strings"

	"github.com/piyushigoyal/claimtriage/internal/config"
	"github.com/piyushigoyal/claimtriage/internal/models"
)

// Vocabulary is the ordered label set searched by Extract. The first label
// found anywhere in the text wins, so order matters.
type Vocabulary struct {
	Severities      []models.Severity
	Actions         []models.Action
	DefaultSeverity models.Severity
	DefaultAction   models.Action
}

// DefaultVocabulary scans severities low..critical and actions
// approve..escalate, falling back to medium / investigate.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Severities:      append([]models.Severity(nil), models.Severities...),
		Actions:         append([]models.Action(nil), models.Actions...),
		DefaultSeverity: models.SeverityMedium,
		DefaultAction:   models.ActionInvestigate,
	}
}

// FromConfig builds a vocabulary from configuration. Every label must belong
// to the fixed severity or action set.
func FromConfig(cfg config.Labels) (Vocabulary, error) {
	v := DefaultVocabulary()
	if len(cfg.Severities) > 0 {
		v.Severities = v.Severities[:0:0]
		for _, s := range cfg.Severities {
			sev := models.Severity(strings.ToLower(s))
			if !models.ValidSeverity(sev) {
				return Vocabulary{}, fmt.Errorf("labels: unknown severity %q", s)
			}
			v.Severities = append(v.Severities, sev)
		}
	}
	if len(cfg.Actions) > 0 {
		v.Actions = v.Actions[:0:0]
		for _, a := range cfg.Actions {
			act := models.Action(strings.ToLower(a))
			if !models.ValidAction(act) {
				return Vocabulary{}, fmt.Errorf("labels: unknown action %q", a)
			}
			v.Actions = append(v.Actions, act)
		}
	}
	if cfg.DefaultSeverity != "" {
		v.DefaultSeverity = models.Severity(strings.ToLower(cfg.DefaultSeverity))
		if !models.ValidSeverity(v.DefaultSeverity) {
			return Vocabulary{}, fmt.Errorf("labels: unknown default severity %q", cfg.DefaultSeverity)
		}
	}
	if cfg.DefaultAction != "" {
		v.DefaultAction = models.Action(strings.ToLower(cfg.DefaultAction))
		if !models.ValidAction(v.DefaultAction) {
			return Vocabulary{}, fmt.Errorf("labels: unknown default action %q", cfg.DefaultAction)
		}
	}
	return v, nil
}

// Extract lower-cases text and returns the first severity and first action
// from the vocabulary that appear as substrings. It is a substring match,
// not a word match: "slowly" contains "low".
func Extract(text string, vocab Vocabulary) (models.Severity, models.Action) {
	lower := strings.ToLower(text)

	severity := vocab.DefaultSeverity
	for _, s := range vocab.Severities {
		if strings.Contains(lower, string(s)) {
			severity = s
			break
		}
	}

	action := vocab.DefaultAction
	for _, a := range vocab.Actions {
		if strings.Contains(lower, string(a)) {
			action = a
			break
		}
	}

	return severity, action
}
