package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	copilot "github.com/github/copilot-sdk/go"

	"github.com/bidpanel/bidpanel/internal/utils"
)

// copilotSession is just an interface over [*copilot.Session]
type copilotSession interface {
	On(handler copilot.SessionEventHandler) func()
	SendAndWait(ctx context.Context, options copilot.MessageOptions) (*copilot.SessionEvent, error)
	SessionID() string
}

// copilotClient is just an interface over [*copilot.Client]
type copilotClient interface {
	CreateSession(ctx context.Context, config *copilot.SessionConfig) (copilotSession, error)
	Start(ctx context.Context) error
	Stop() error
}

func newCopilotClient(clientOptions *copilot.ClientOptions) copilotClient {
	return &copilotClientWrapper{inner: copilot.NewClient(clientOptions)}
}

type copilotClientWrapper struct {
	inner *copilot.Client
}

func (w *copilotClientWrapper) CreateSession(ctx context.Context, config *copilot.SessionConfig) (copilotSession, error) {
	sess, err := w.inner.CreateSession(ctx, config)

	if err != nil {
		return nil, err
	}

	return &copilotSessionWrapper{inner: sess}, nil
}

func (w *copilotClientWrapper) Start(ctx context.Context) error {
	return w.inner.Start(ctx)
}

func (w *copilotClientWrapper) Stop() error {
	return w.inner.Stop()
}

// copilotSessionWrapper forwards to [copilot.Session]. It exists because
// [copilot.Session.SessionID] is a field, so we can't represent it in an
// interface directly.
type copilotSessionWrapper struct {
	inner *copilot.Session
}

func (w *copilotSessionWrapper) On(handler copilot.SessionEventHandler) func() {
	return w.inner.On(handler)
}

func (w *copilotSessionWrapper) SendAndWait(ctx context.Context, options copilot.MessageOptions) (*copilot.SessionEvent, error) {
	return w.inner.SendAndWait(ctx, options)
}

func (w *copilotSessionWrapper) SessionID() string {
	return w.inner.SessionID
}

// CopilotClient runs completions through the GitHub Copilot CLI via the
// Copilot SDK. It uses the logged-in user's credentials, so no API key is
// needed.
type CopilotClient struct {
	defaultModelID string
	client         copilotClient
	startOnce      sync.Once
}

// CopilotClientOptions allows tests to substitute the underlying SDK client.
type CopilotClientOptions struct {
	NewCopilotClient func(clientOptions *copilot.ClientOptions) copilotClient
}

// NewCopilotClient creates a Copilot-backed [Client].
//   - defaultModelID - used when the request doesn't name a model. Can be
//     blank, which means the copilot CLI will choose its own fallback model.
func NewCopilotClient(defaultModelID string, options *CopilotClientOptions) *CopilotClient {
	copilotOptions := &copilot.ClientOptions{
		LogLevel:        "error",
		AutoStart:       copilot.Bool(false),
		UseLoggedInUser: utils.Ptr(true),
	}

	var client copilotClient

	if options == nil || options.NewCopilotClient == nil {
		client = newCopilotClient(copilotOptions)
	} else {
		client = options.NewCopilotClient(copilotOptions)
	}

	return &CopilotClient{
		defaultModelID: defaultModelID,
		client:         client,
	}
}

// Model implements [Client].
func (c *CopilotClient) Model() string {
	return c.defaultModelID
}

// Complete implements [Client].
func (c *CopilotClient) Complete(ctx context.Context, req Request) (*Response, error) {
	var startErr error

	c.startOnce.Do(func() {
		// NOTE: the copilot client has an 'autostart' feature, but it runs
		// into issues when it tries to autostart from separate goroutines.
		startErr = c.client.Start(ctx)
	})

	if startErr != nil {
		return nil, fmt.Errorf("copilot failed to start: %w", startErr)
	}

	modelID := c.defaultModelID
	if req.Model != "" {
		modelID = req.Model
	}

	session, err := c.client.CreateSession(ctx, &copilot.SessionConfig{
		Model:     modelID,
		Streaming: true,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	unsubscribe := session.On(utils.DebugSessionEvent)
	defer unsubscribe()

	resp, err := session.SendAndWait(ctx, copilot.MessageOptions{
		Prompt: c.buildPrompt(req),
		Mode:   "enqueue",
	})

	if err != nil {
		return nil, fmt.Errorf("failed to send prompt: %w", err)
	}

	if resp == nil || resp.Data.Content == nil {
		return nil, errors.New("no response content from copilot session")
	}

	return &Response{
		Content: *resp.Data.Content,
		Model:   modelID,
	}, nil
}

// Shutdown stops the underlying copilot CLI process.
func (c *CopilotClient) Shutdown(ctx context.Context) error {
	if err := c.client.Stop(); err != nil {
		slog.InfoContext(ctx, "failed to stop copilot client", "error", err)
	}
	return nil
}

// buildPrompt folds the system message into the prompt since copilot
// sessions take a single message.
func (c *CopilotClient) buildPrompt(req Request) string {
	var sb strings.Builder

	if req.System != "" {
		sb.WriteString(req.System)
		sb.WriteString("\n\n")
	}

	sb.WriteString(req.User)

	if req.ForceJSON {
		sb.WriteString("\n\nRespond with a single JSON object and nothing else.")
	}

	return sb.String()
}
