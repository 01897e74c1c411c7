package generation

import (
	"context"
	"strings"
	"sync"
)

// MockClient is a simple scripted implementation for testing.
type MockClient struct {
	modelID string

	mu        sync.Mutex
	responses []MockResponse
	calls     []Request
	err       error
}

// MockResponse scripts one canned reply. Match is a substring looked for
// in the user message; an empty Match matches any request.
type MockResponse struct {
	Match   string
	Content string
	Usage   Usage
}

// NewMockClient creates a new mock client.
func NewMockClient(modelID string, responses ...MockResponse) *MockClient {
	return &MockClient{
		modelID:   modelID,
		responses: responses,
	}
}

// FailWith makes every subsequent Complete call return err.
func (m *MockClient) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns a copy of every request seen so far.
func (m *MockClient) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}

func (m *MockClient) Model() string {
	return m.modelID
}

func (m *MockClient) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)

	if m.err != nil {
		return nil, m.err
	}

	for _, r := range m.responses {
		if r.Match == "" || strings.Contains(req.User, r.Match) || strings.Contains(req.System, r.Match) {
			return &Response{Content: r.Content, Model: m.modelID, Usage: r.Usage}, nil
		}
	}

	return &Response{Content: "{}", Model: m.modelID}, nil
}
