package execution

import (
	"context"

	copilot "github.com/github/copilot-sdk/go"
)

//go:generate go tool mockgen -source copilot_client_wrappers.go -destination copilot_mocks_test.go -package execution

// copilotSession is the part of [*copilot.Session] CopilotEngine uses.
type copilotSession interface {
	On(handler copilot.SessionEventHandler) func()
	SendAndWait(ctx context.Context, options copilot.MessageOptions) (*copilot.SessionEvent, error)
	SessionID() string
}

// copilotClient is the part of [*copilot.Client] CopilotEngine uses.
type copilotClient interface {
	CreateSession(ctx context.Context, config *copilot.SessionConfig) (copilotSession, error)
	Start(ctx context.Context) error
	Stop() error
}

func newCopilotClient(clientOptions *copilot.ClientOptions) copilotClient {
	return sdkClient{copilot.NewClient(clientOptions)}
}

type sdkClient struct{ *copilot.Client }

func (c sdkClient) CreateSession(ctx context.Context, config *copilot.SessionConfig) (copilotSession, error) {
	sess, err := c.Client.CreateSession(ctx, config)
	if err != nil {
		return nil, err
	}
	return sdkSession{sess}, nil
}

// sdkSession exposes the SessionID field as a method.
type sdkSession struct{ *copilot.Session }

func (s sdkSession) SessionID() string { return s.Session.SessionID }
