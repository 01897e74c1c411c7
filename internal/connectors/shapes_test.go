package connectors

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bidpanel/bidpanel/internal/models"
)

func TestNormalize_PagesShape(t *testing.T) {
	raw := []byte(`{"pages":[{"title":"SLA Overview","content":"99.9% uptime"},{"title":"Escalation","content":"24/7 hotline"}]}`)

	got, err := normalize(raw, models.RoleOperations)
	require.NoError(t, err)

	assert.Contains(t, got, "SLA Overview: 99.9% uptime")
	assert.Contains(t, got, "Escalation: 24/7 hotline")
}

func TestNormalize_ResultsArray(t *testing.T) {
	raw := []byte(`{"results":[{"name":"case study","snippet":"migrated 200 users"}]}`)

	got, err := normalize(raw, models.RoleDelivery)
	require.NoError(t, err)
	assert.Contains(t, got, "case study: migrated 200 users")
}

func TestNormalize_BareArray(t *testing.T) {
	raw := []byte(`[{"title":"entry","text":"body text"}]`)

	got, err := normalize(raw, models.RoleDelivery)
	require.NoError(t, err)
	assert.Contains(t, got, "entry: body text")
}

func TestNormalize_InsightsShape(t *testing.T) {
	raw := []byte(`{"insights":["strong compliance posture","SOC2 certified"]}`)

	got, err := normalize(raw, models.RoleCompliance)
	require.NoError(t, err)
	assert.Contains(t, got, "- strong compliance posture")
	assert.Contains(t, got, "- SOC2 certified")
}

func TestNormalize_FreeTextShape(t *testing.T) {
	for _, field := range []string{"text", "content", "summary", "answer"} {
		raw := []byte(`{"` + field + `":"vendor has delivered similar projects"}`)
		got, err := normalize(raw, models.RoleDelivery)
		require.NoError(t, err)
		assert.Equal(t, "vendor has delivered similar projects", got, "field %q", field)
	}
}

func TestNormalize_PerformanceShape(t *testing.T) {
	raw := []byte(`{"vendor":"Acme","metrics":{"uptime":99.95,"ticket_sla":0.92}}`)

	got, err := normalize(raw, models.RoleOperations)
	require.NoError(t, err)
	assert.Contains(t, got, "Performance record for Acme:")
	assert.Contains(t, got, "ticket_sla: 0.92")
	assert.Contains(t, got, "uptime: 99.95")
}

func TestNormalize_GenericFallback(t *testing.T) {
	raw := []byte(`{"vendor_id":"v-1","region":"emea","headcount":420}`)

	got, err := normalize(raw, models.RoleFunctional)
	require.NoError(t, err)
	assert.Contains(t, got, "headcount: 420")
	assert.Contains(t, got, "region: emea")
	assert.Contains(t, got, "vendor_id: v-1")
}

func TestNormalize_GenericFallbackLimits(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("{")
	for i := 0; i < 15; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(`"key`)
		sb.WriteByte(byte('a' + i))
		sb.WriteString(`":"`)
		sb.WriteString(strings.Repeat("x", 500))
		sb.WriteString(`"`)
	}
	sb.WriteString("}")

	got, err := normalize([]byte(sb.String()), models.RoleFunctional)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(got), "\n")
	assert.Len(t, lines, genericMaxEntries, "first 10 entries only")
	for _, line := range lines {
		assert.LessOrEqual(t, len(line), genericValueLength+len("keya: ")+len("..."))
		assert.True(t, strings.HasSuffix(line, "..."), "values truncated")
	}
}

func TestNormalize_SSEFramed(t *testing.T) {
	raw := []byte("data: {\"content\":\"first chunk \"}\n\ndata: {\"content\":\"second chunk\"}\n\ndata: [DONE]\n")

	got, err := normalize(raw, models.RoleArchitecture)
	require.NoError(t, err)
	assert.Equal(t, "first chunk second chunk", got)
}

func TestNormalize_PlainText(t *testing.T) {
	got, err := normalize([]byte("plain prose about the vendor"), models.RoleFunctional)
	require.NoError(t, err)
	assert.Equal(t, "plain prose about the vendor", got)
}

func TestNormalize_Empty(t *testing.T) {
	got, err := normalize(nil, models.RoleFunctional)
	require.NoError(t, err)
	assert.Empty(t, got)
}
