package specialist

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/bidpanel/bidpanel/internal/generation"
	"github.com/bidpanel/bidpanel/internal/metrics"
	"github.com/bidpanel/bidpanel/internal/models"
	"github.com/bidpanel/bidpanel/internal/progress"
)

const goodResponse = `{
	"insights": ["solid delivery plan", "aggressive timeline"],
	"scores": {"overall": 70, "delivery_risk": 40},
	"rationale": "The plan is credible.",
	"status": "recommended"
}`

func testInput() Input {
	return Input{
		Context: models.EvaluationContext{
			ProjectID:           "proj-1",
			VendorName:          "Acme",
			RequirementsSummary: "CRM with API access",
			TechnicalApproach:   "SaaS, REST APIs",
		},
	}
}

func TestExecute_Success(t *testing.T) {
	client := generation.NewMockClient("mock-model",
		generation.MockResponse{
			Content: goodResponse,
			Usage:   generation.Usage{PromptTokens: 1000, CompletionTokens: 200, TotalTokens: 1200},
		})
	reporter := progress.NewReporter()
	recorder := metrics.NewRecorder()

	exec, err := NewExecutor(client, reporter, recorder)
	require.NoError(t, err)

	result := exec.Execute(context.Background(), models.RoleDelivery, testInput())

	assert.True(t, result.Succeeded)
	assert.Equal(t, models.RoleDelivery, result.Role)
	assert.Equal(t, models.StatusRecommended, result.Status)
	assert.Equal(t, 70.0, result.Overall())
	assert.Equal(t, 1200, result.TokensUsed)
	assert.InDelta(t, 1000*2.50/1e6+200*10.00/1e6, result.CostUSD, 1e-9)

	// prompt carried both context fields
	calls := client.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].User, "CRM with API access")
	assert.Contains(t, calls[0].User, "SaaS, REST APIs")
	assert.True(t, calls[0].ForceJSON)

	// progress settled at completed
	snapshot := reporter.Snapshot("proj-1")
	require.Len(t, snapshot, 1)
	assert.Equal(t, progress.StageCompleted, snapshot[0].Stage)

	// one metrics record, successful
	records := recorder.Records()
	require.Len(t, records, 1)
	assert.True(t, records[0].Success)
}

func TestExecute_DerivesStatusWhenOmitted(t *testing.T) {
	client := generation.NewMockClient("m", generation.MockResponse{
		Content: `{"insights": ["x"], "scores": {"overall": 40}, "rationale": "r"}`,
	})

	exec, err := NewExecutor(client, nil, nil)
	require.NoError(t, err)

	result := exec.Execute(context.Background(), models.RoleFunctional, testInput())
	assert.True(t, result.Succeeded)
	assert.Equal(t, models.StatusRiskFlagged, result.Status)
}

func TestExecute_TimeoutReturnsFallback(t *testing.T) {
	client := &hangingClient{}
	reporter := progress.NewReporter()
	recorder := metrics.NewRecorder()

	exec, err := NewExecutor(client, reporter, recorder, WithTimeout(time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	result := exec.Execute(context.Background(), models.RoleCompliance, testInput())

	assert.Less(t, time.Since(start), time.Second, "must return promptly after the budget")
	assert.False(t, result.Succeeded)
	assert.Equal(t, 0.0, result.Overall())
	assert.Equal(t, models.FailureTimeout, result.FailureCategory)
	assert.Len(t, result.Insights, 4)
	assert.Equal(t, models.RoleCompliance.FallbackInsights(), result.Insights)

	snapshot := reporter.Snapshot("proj-1")
	require.Len(t, snapshot, 1)
	assert.Equal(t, progress.StageFailed, snapshot[0].Stage)

	records := recorder.Records()
	require.Len(t, records, 1)
	assert.False(t, records[0].Success)
	assert.Equal(t, models.FailureTimeout, records[0].Category)
}

func TestExecute_MalformedJSONReturnsFallback(t *testing.T) {
	client := generation.NewMockClient("m", generation.MockResponse{
		Content: "definitely not a JSON object at all [",
	})

	exec, err := NewExecutor(client, nil, nil)
	require.NoError(t, err)

	result := exec.Execute(context.Background(), models.RoleArchitecture, testInput())
	assert.False(t, result.Succeeded)
	assert.Equal(t, models.FailureParsing, result.FailureCategory)
	assert.Equal(t, models.RoleArchitecture.FallbackInsights(), result.Insights)
}

func TestExecute_TransportErrorReturnsFallback(t *testing.T) {
	client := generation.NewMockClient("m")
	client.FailWith(errors.New("connection refused"))

	exec, err := NewExecutor(client, nil, nil)
	require.NoError(t, err)

	result := exec.Execute(context.Background(), models.RoleOperations, testInput())
	assert.False(t, result.Succeeded)
	assert.Equal(t, models.FailureUnknown, result.FailureCategory)
	assert.Len(t, result.Insights, 4)
}

func TestExecute_StandardsInPrompt(t *testing.T) {
	client := generation.NewMockClient("m", generation.MockResponse{Content: goodResponse})

	exec, err := NewExecutor(client, nil, nil)
	require.NoError(t, err)

	input := testInput()
	input.Standards = []models.ComplianceStandard{
		{Name: "ISO 27001", Description: "Information security management"},
	}

	exec.Execute(context.Background(), models.RoleCompliance, input)

	calls := client.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].User, "ISO 27001")
	assert.Contains(t, calls[0].User, "Information security management")
}

func TestExecute_RequestShape(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockClient(ctrl)

	var gotReq generation.Request
	client.EXPECT().Complete(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req generation.Request) (*generation.Response, error) {
			gotReq = req
			return &generation.Response{Content: goodResponse, Model: "m"}, nil
		})

	exec, err := NewExecutor(client, nil, nil, WithTemperature(0.7))
	require.NoError(t, err)

	result := exec.Execute(context.Background(), models.RoleDelivery, testInput())
	require.True(t, result.Succeeded)

	assert.True(t, gotReq.ForceJSON)
	assert.Equal(t, 0.7, gotReq.Temperature)
	assert.Contains(t, gotReq.System, models.RoleDelivery.DisplayName())
}

func TestExecute_RateLimitedEngineCategorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, err := generation.NewOpenAIClient(generation.OpenAIConfig{
		BaseURL:    srv.URL,
		Model:      "m",
		MaxRetries: 1,
	})
	require.NoError(t, err)

	recorder := metrics.NewRecorder()
	exec, err := NewExecutor(client, nil, recorder)
	require.NoError(t, err)

	result := exec.Execute(context.Background(), models.RoleFunctional, testInput())

	assert.False(t, result.Succeeded)
	assert.Equal(t, models.FailureRateLimit, result.FailureCategory)
	assert.Equal(t, models.RoleFunctional.FallbackInsights(), result.Insights)

	records := recorder.Records()
	require.Len(t, records, 1)
	assert.Equal(t, models.FailureRateLimit, records[0].Category)
}

func TestExecute_AuthFailureCategorized(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockClient(ctrl)
	client.EXPECT().Complete(gomock.Any(), gomock.Any()).
		Return(nil, &generation.StatusError{Code: http.StatusUnauthorized, Body: "bad key"})
	client.EXPECT().Model().Return("m")

	exec, err := NewExecutor(client, nil, nil)
	require.NoError(t, err)

	result := exec.Execute(context.Background(), models.RoleCompliance, testInput())
	assert.False(t, result.Succeeded)
	assert.Equal(t, models.FailureAuth, result.FailureCategory)
}

func TestCategorizeFailure_StatusCodes(t *testing.T) {
	tests := []struct {
		code int
		want models.FailureCategory
	}{
		{http.StatusUnauthorized, models.FailureAuth},
		{http.StatusForbidden, models.FailureAuth},
		{http.StatusTooManyRequests, models.FailureRateLimit},
		{http.StatusInternalServerError, models.FailureUnknown},
	}

	for _, tt := range tests {
		err := &generation.StatusError{Code: tt.code}
		assert.Equal(t, tt.want, categorizeFailure(err), "status %d", tt.code)

		// the retry loop wraps the last error, categorization must see through
		wrapped := fmt.Errorf("completion failed after 3 attempts: %w", err)
		assert.Equal(t, tt.want, categorizeFailure(wrapped), "wrapped status %d", tt.code)
	}
}

// hangingClient blocks until the context is done.
type hangingClient struct{}

func (h *hangingClient) Model() string { return "hanging" }

func (h *hangingClient) Complete(ctx context.Context, req generation.Request) (*generation.Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
