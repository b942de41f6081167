package strategy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/piyushigoyal/claimtriage/internal/config"
	"github.com/piyushigoyal/claimtriage/internal/execution"
	"github.com/piyushigoyal/claimtriage/internal/labels"
	"github.com/piyushigoyal/claimtriage/internal/models"
	"github.com/piyushigoyal/claimtriage/internal/template"
)

// SingleShot sends one prompt per claim and extracts the labels from the
// free-text answer. The model gets no tools.
type SingleShot struct {
	engine      execution.Engine
	vocab       labels.Vocabulary
	bands       config.Triage
	model       string
	temperature *float64
}

func NewSingleShot(engine execution.Engine, vocab labels.Vocabulary, cfg config.Config) *SingleShot {
	return &SingleShot{
		engine:      engine,
		vocab:       vocab,
		bands:       cfg.Triage,
		model:       cfg.Engine.Model,
		temperature: cfg.Engine.Temperature,
	}
}

func (s *SingleShot) Name() string { return NameSingleShot }

// ModelID identifies the model for cache keys.
func (s *SingleShot) ModelID() string { return s.engine.Name() + "/" + s.model }

func (s *SingleShot) ProcessClaim(ctx context.Context, claim models.Claim, _ *models.Policy) models.Decision {
	start := time.Now()

	prompt, err := template.Render(singleShotPrompt, template.ClaimContext(claim, s.bands.LowBand, s.bands.MediumBand, s.bands.HighBand))
	if err != nil {
		return finish(FailSafe(s.Name(), claim.ID, err), start)
	}

	resp, err := s.engine.Chat(ctx, &execution.ChatRequest{
		ClaimID:     claim.ID,
		Messages:    []execution.Message{execution.UserMessage(prompt)},
		Model:       s.model,
		Temperature: s.temperature,
	})
	if err != nil {
		return finish(FailSafe(s.Name(), claim.ID, fmt.Errorf("%s: %w", s.engine.Name(), err)), start)
	}

	text := resp.Content()
	if strings.TrimSpace(text) == "" {
		return finish(FailSafe(s.Name(), claim.ID, errors.New("model returned an empty response")), start)
	}

	d := newDecision(s.Name(), claim.ID)
	d.Severity, d.Action = labels.Extract(text, s.vocab)
	d.Rationale = text
	d.Success = true
	return finish(d, start)
}
