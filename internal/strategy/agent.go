package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/piyushigoyal/claimtriage/internal/config"
	"github.com/piyushigoyal/claimtriage/internal/execution"
	"github.com/piyushigoyal/claimtriage/internal/labels"
	"github.com/piyushigoyal/claimtriage/internal/models"
	"github.com/piyushigoyal/claimtriage/internal/template"
	"github.com/piyushigoyal/claimtriage/internal/tools"
)

// Agent runs a tool-calling conversation per claim. Each model turn either
// asks for tools, whose results are fed back, or gives the final answer.
// The number of model turns is capped by MaxIterations.
type Agent struct {
	engine        execution.Engine
	tools         *tools.Registry
	vocab         labels.Vocabulary
	bands         config.Triage
	model         string
	temperature   *float64
	maxIterations int
}

func NewAgent(engine execution.Engine, registry *tools.Registry, vocab labels.Vocabulary, cfg config.Config) *Agent {
	maxIter := cfg.Agent.MaxIterations
	if maxIter < 1 {
		maxIter = config.DefaultMaxIterations
	}
	return &Agent{
		engine:        engine,
		tools:         registry,
		vocab:         vocab,
		bands:         cfg.Triage,
		model:         cfg.Engine.Model,
		temperature:   cfg.Engine.Temperature,
		maxIterations: maxIter,
	}
}

func (a *Agent) Name() string { return NameAgent }

// ModelID identifies the model for cache keys.
func (a *Agent) ModelID() string { return a.engine.Name() + "/" + a.model }

func (a *Agent) ProcessClaim(ctx context.Context, claim models.Claim, _ *models.Policy) models.Decision {
	start := time.Now()
	fail := func(err error) models.Decision {
		return finish(FailSafe(a.Name(), claim.ID, err), start)
	}

	pctx := template.ClaimContext(claim, a.bands.LowBand, a.bands.MediumBand, a.bands.HighBand)
	system, err := template.Render(agentSystemPrompt, pctx)
	if err != nil {
		return fail(err)
	}
	user, err := template.Render(agentClaimPrompt, pctx)
	if err != nil {
		return fail(err)
	}

	messages := []execution.Message{
		execution.SystemMessage(system),
		execution.UserMessage(user),
	}
	specs := a.tools.Specs()

	for i := 0; i < a.maxIterations; i++ {
		resp, err := a.engine.Chat(ctx, &execution.ChatRequest{
			ClaimID:     claim.ID,
			Messages:    messages,
			Tools:       specs,
			Model:       a.model,
			Temperature: a.temperature,
		})
		if errors.Is(err, execution.ErrToolsUnsupported) {
			return fail(fmt.Errorf("the %s engine cannot run the agent strategy: %w", a.engine.Name(), err))
		}
		if err != nil {
			return fail(fmt.Errorf("%s: %w", a.engine.Name(), err))
		}

		reply := resp.Message
		reply.Role = execution.RoleAssistant
		messages = append(messages, reply)

		if !resp.HasToolCalls() {
			text := resp.Content()
			if strings.TrimSpace(text) == "" {
				return fail(errors.New("model returned an empty final answer"))
			}
			d := newDecision(a.Name(), claim.ID)
			d.Severity, d.Action = labels.Extract(text, a.vocab)
			d.Rationale = text
			d.Success = true
			d.Steps = i + 1
			return finish(d, start)
		}

		for _, call := range reply.ToolCalls {
			slog.Debug("Agent tool call", "claim_id", claim.ID, "tool", call.Name, "iteration", i+1)
			out := a.tools.Invoke(ctx, claim.ID, call)
			messages = append(messages, execution.ToolResult(call, out))
		}
	}

	return fail(fmt.Errorf("%w after %d model turns", ErrIterationLimit, a.maxIterations))
}
