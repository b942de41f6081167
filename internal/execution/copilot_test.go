package execution

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	copilot "github.com/github/copilot-sdk/go"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/sync/errgroup"
)

var enableCopilotTests = os.Getenv("ENABLE_COPILOT_TESTS") == "true"

func newMockedCopilotEngine(t *testing.T, model string) (*CopilotEngine, *MockcopilotClient, *MockcopilotSession) {
	t.Helper()
	ctrl := gomock.NewController(t)
	clientMock := NewMockcopilotClient(ctrl)
	sessionMock := NewMockcopilotSession(ctrl)

	engine := NewCopilotEngineBuilder(model, &CopilotEngineBuilderOptions{
		NewCopilotClient: func(clientOptions *copilot.ClientOptions) copilotClient { return clientMock },
	}).Build()
	return engine, clientMock, sessionMock
}

// captureHandlers records session handlers so SendAndWait can emit events.
func captureHandlers(sessionMock *MockcopilotSession, unregisterCount *int) *[]copilot.SessionEventHandler {
	var handlers []copilot.SessionEventHandler
	sessionMock.EXPECT().On(gomock.Any()).Times(2).DoAndReturn(func(h copilot.SessionEventHandler) func() {
		handlers = append(handlers, h)
		return func() { *unregisterCount++ }
	})
	return &handlers
}

func emit(handlers []copilot.SessionEventHandler, evt copilot.SessionEvent) {
	for _, h := range handlers {
		h(evt)
	}
}

func TestCopilotChat(t *testing.T) {
	engine, clientMock, sessionMock := newMockedCopilotEngine(t, "gpt-4o-mini")

	clientMock.EXPECT().Start(gomock.Any())
	clientMock.EXPECT().CreateSession(gomock.Any(), sessionConfigMatcher{t: t, model: "this-model-wins"}).Return(sessionMock, nil)
	clientMock.EXPECT().Stop()

	unregisterCount := 0
	handlers := captureHandlers(sessionMock, &unregisterCount)

	var sentPrompt string
	sessionMock.EXPECT().SendAndWait(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, opts copilot.MessageOptions) (*copilot.SessionEvent, error) {
			sentPrompt = opts.Prompt
			first, second := "SEVERITY: high\n", "ACTION: investigate"
			emit(*handlers, copilot.SessionEvent{Type: copilot.AssistantMessage, Data: copilot.Data{Content: &first}})
			emit(*handlers, copilot.SessionEvent{Type: copilot.AssistantMessage, Data: copilot.Data{Content: &second}})
			emit(*handlers, copilot.SessionEvent{Type: copilot.SessionIdle})
			return &copilot.SessionEvent{}, nil
		})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	resp, err := engine.Chat(ctx, &ChatRequest{
		ClaimID:  "CLM-1",
		Model:    "this-model-wins",
		Messages: []Message{SystemMessage("You are an adjuster."), UserMessage("Assess CLM-1.")},
	})
	require.NoError(t, err)
	require.NoError(t, engine.Shutdown(context.Background()))

	require.Equal(t, "SEVERITY: high\nACTION: investigate", resp.Content())
	require.Equal(t, "this-model-wins", resp.Model)
	require.Equal(t, RoleAssistant, resp.Message.Role)
	require.Equal(t, "You are an adjuster.\n\nAssess CLM-1.", sentPrompt)
	require.Equal(t, 2, unregisterCount)
}

func TestCopilotChat_DefaultModel(t *testing.T) {
	engine, clientMock, sessionMock := newMockedCopilotEngine(t, "gpt-4o-mini")

	clientMock.EXPECT().Start(gomock.Any())
	clientMock.EXPECT().CreateSession(gomock.Any(), sessionConfigMatcher{t: t, model: "gpt-4o-mini"}).Return(sessionMock, nil)

	sessionMock.EXPECT().On(gomock.Any()).Times(2).Return(func() {})
	sessionMock.EXPECT().SendAndWait(gomock.Any(), gomock.Any()).Return(&copilot.SessionEvent{}, nil)

	resp, err := engine.Chat(context.Background(), &ChatRequest{Messages: []Message{UserMessage("hi")}})
	require.NoError(t, err)
	require.Empty(t, resp.Content())
}

func TestCopilotChat_SendAndWaitError(t *testing.T) {
	engine, clientMock, sessionMock := newMockedCopilotEngine(t, "gpt-4o-mini")
	const sessionErrorMsg = "session error occurred"

	clientMock.EXPECT().Start(gomock.Any())
	clientMock.EXPECT().CreateSession(gomock.Any(), gomock.Any()).Return(sessionMock, nil)

	sessionMock.EXPECT().On(gomock.Any()).Times(2).Return(func() {})
	sessionMock.EXPECT().SendAndWait(gomock.Any(), gomock.Any()).Return(nil, errors.New(sessionErrorMsg))
	sessionMock.EXPECT().SessionID().Return("session-1")

	resp, err := engine.Chat(context.Background(), &ChatRequest{Messages: []Message{UserMessage("hi")}})
	require.ErrorContains(t, err, sessionErrorMsg)
	require.ErrorContains(t, err, "session-1")
	require.Nil(t, resp)
}

func TestCopilotChat_SessionErrorEvent(t *testing.T) {
	engine, clientMock, sessionMock := newMockedCopilotEngine(t, "gpt-4o-mini")

	clientMock.EXPECT().Start(gomock.Any())
	clientMock.EXPECT().CreateSession(gomock.Any(), gomock.Any()).Return(sessionMock, nil)

	unregisterCount := 0
	handlers := captureHandlers(sessionMock, &unregisterCount)
	sessionMock.EXPECT().SendAndWait(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, opts copilot.MessageOptions) (*copilot.SessionEvent, error) {
			emit(*handlers, copilot.SessionEvent{Type: copilot.SessionError})
			return &copilot.SessionEvent{}, nil
		})
	sessionMock.EXPECT().SessionID().Return("session-2")

	_, err := engine.Chat(context.Background(), &ChatRequest{Messages: []Message{UserMessage("hi")}})
	require.ErrorIs(t, err, errSessionFailed)
}

func TestCopilotChat_StartFailsOnce(t *testing.T) {
	engine, clientMock, _ := newMockedCopilotEngine(t, "gpt-4o-mini")

	clientMock.EXPECT().Start(gomock.Any()).Return(errors.New("no cli")).Times(1)

	for range 2 {
		_, err := engine.Chat(context.Background(), &ChatRequest{Messages: []Message{UserMessage("hi")}})
		require.ErrorContains(t, err, "copilot failed to start: no cli")
	}
}

func TestCopilotChat_RejectsTools(t *testing.T) {
	engine, _, _ := newMockedCopilotEngine(t, "gpt-4o-mini")

	_, err := engine.Chat(context.Background(), &ChatRequest{
		Messages: []Message{UserMessage("hi")},
		Tools:    []ToolSpec{{Name: "policy_lookup"}},
	})
	require.ErrorIs(t, err, ErrToolsUnsupported)

	_, err = engine.Chat(context.Background(), nil)
	require.Error(t, err)
}

func TestCopilotChatParallel(t *testing.T) {
	if !enableCopilotTests {
		t.Skip("ENABLE_COPILOT_TESTS must be set in order to run live copilot tests")
	}

	engine := NewCopilotEngineBuilder("gpt-4o-mini", nil).Build()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	eg := errgroup.Group{}

	for range 5 {
		eg.Go(func() error {
			_, err := engine.Chat(ctx, &ChatRequest{Messages: []Message{UserMessage("Reply with SEVERITY: low")}})
			return err
		})
	}

	require.NoError(t, eg.Wait())
	require.NoError(t, engine.Shutdown(context.Background()))
}

type sessionConfigMatcher struct {
	model string
	t     *testing.T
}

func (m sessionConfigMatcher) Matches(x any) bool {
	c, ok := x.(*copilot.SessionConfig)
	require.True(m.t, ok, "unexpected session configuration type %T", x)
	require.NotNil(m.t, c.OnPermissionRequest)
	require.Equal(m.t, m.model, c.Model)
	return true
}

func (m sessionConfigMatcher) String() string {
	return "session config for model " + m.model
}
