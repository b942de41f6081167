package execution

import (
	"fmt"
	"time"

	"github.com/piyushigoyal/claimtriage/internal/config"
)

// New builds the engine named by cfg.Type, wrapped with cfg's rate limit and
// request timeout.
func New(cfg config.Engine) (Engine, error) {
	var (
		engine Engine
		err    error
	)
	switch cfg.Type {
	case "openai":
		engine, err = NewOpenAIEngine(cfg.Model, cfg.Temperature)
	case "copilot":
		engine = NewCopilotEngineBuilder(cfg.Model, nil).Build()
	case "mock", "":
		engine = NewMockEngine(cfg.Model)
	default:
		return nil, fmt.Errorf("unknown engine type %q (want openai, copilot or mock)", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	return WithLimits(engine, cfg.RequestsPerSecond, cfg.Burst, time.Duration(cfg.Timeout)*time.Second), nil
}
