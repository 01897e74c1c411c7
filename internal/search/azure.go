package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
)

const (
	defaultAPIVersion = "2024-07-01"
	moduleName        = "github.com/bidpanel/bidpanel"
	moduleVersion     = "v0.1.0"
)

// AzureConfig configures one Azure AI Search index client. Either APIKey or
// Credential must be set.
type AzureConfig struct {
	Endpoint   string
	IndexName  string
	APIKey     string
	Credential azcore.TokenCredential
	APIVersion string

	// VectorField is the index field holding embeddings. Leave empty to
	// issue text-only queries.
	VectorField string
}

// AzureBackend queries one Azure AI Search index, issuing hybrid
// vector+text queries when an embedder is available.
type AzureBackend struct {
	endpoint    string
	index       string
	apiVersion  string
	vectorField string
	pipeline    runtime.Pipeline
	embedder    Embedder
}

// NewAzureBackend builds a backend for the configured index. The embedder may
// be nil, in which case queries are text-only.
func NewAzureBackend(cfg AzureConfig, embedder Embedder) (*AzureBackend, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("search: endpoint is required")
	}
	if cfg.IndexName == "" {
		return nil, fmt.Errorf("search: index name is required")
	}

	var auth policy.Policy
	switch {
	case cfg.APIKey != "":
		auth = runtime.NewKeyCredentialPolicy(azcore.NewKeyCredential(cfg.APIKey), "api-key", nil)
	case cfg.Credential != nil:
		auth = runtime.NewBearerTokenPolicy(cfg.Credential, []string{"https://search.azure.com/.default"}, nil)
	default:
		return nil, fmt.Errorf("search: either an API key or a token credential is required")
	}

	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}

	pipeline := runtime.NewPipeline(moduleName, moduleVersion,
		runtime.PipelineOptions{PerRetry: []policy.Policy{auth}}, nil)

	return &AzureBackend{
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		index:       cfg.IndexName,
		apiVersion:  apiVersion,
		vectorField: cfg.VectorField,
		pipeline:    pipeline,
		embedder:    embedder,
	}, nil
}

// Name implements [Backend].
func (b *AzureBackend) Name() string {
	return b.index
}

type azureSearchRequest struct {
	Search        string             `json:"search"`
	Top           int                `json:"top"`
	Filter        string             `json:"filter,omitempty"`
	Select        string             `json:"select"`
	VectorQueries []azureVectorQuery `json:"vectorQueries,omitempty"`
}

type azureVectorQuery struct {
	Kind   string    `json:"kind"`
	Vector []float32 `json:"vector"`
	Fields string    `json:"fields"`
	K      int       `json:"k"`
}

type azureSearchResponse struct {
	Value []azureSearchDoc `json:"value"`
}

type azureSearchDoc struct {
	Score        float64 `json:"@search.score"`
	Content      string  `json:"content"`
	FileName     string  `json:"fileName"`
	SourceType   string  `json:"sourceType"`
	Category     string  `json:"category"`
	SectionTitle string  `json:"sectionTitle"`
	ChunkIndex   int     `json:"chunkIndex"`
}

// Query implements [Backend].
func (b *AzureBackend) Query(ctx context.Context, q Query) ([]Hit, error) {
	body := azureSearchRequest{
		Search: q.Text,
		Top:    q.TopK,
		Filter: buildFilterExpression(q.Filter),
		Select: "content,fileName,sourceType,category,sectionTitle,chunkIndex",
	}

	if b.embedder != nil && b.vectorField != "" {
		vector, err := b.embedder.Embed(ctx, q.Text)
		if err != nil {
			return nil, fmt.Errorf("embedding query: %w", err)
		}
		body.VectorQueries = []azureVectorQuery{{
			Kind:   "vector",
			Vector: vector,
			Fields: b.vectorField,
			K:      q.TopK,
		}}
	}

	endpoint := fmt.Sprintf("%s/indexes/%s/docs/search", b.endpoint, url.PathEscape(b.index))
	req, err := runtime.NewRequest(ctx, http.MethodPost, endpoint)
	if err != nil {
		return nil, err
	}
	req.Raw().URL.RawQuery = "api-version=" + b.apiVersion

	if err := runtime.MarshalAsJSON(req, body); err != nil {
		return nil, err
	}

	resp, err := b.pipeline.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying index %s: %w", b.index, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if !runtime.HasStatusCode(resp, http.StatusOK) {
		return nil, runtime.NewResponseError(resp)
	}

	payload, err := runtime.Payload(resp)
	if err != nil {
		return nil, err
	}

	var parsed azureSearchResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	hits := make([]Hit, 0, len(parsed.Value))
	for _, doc := range parsed.Value {
		hits = append(hits, Hit{
			Content:      doc.Content,
			FileName:     doc.FileName,
			SourceType:   doc.SourceType,
			Category:     doc.Category,
			SectionTitle: doc.SectionTitle,
			ChunkIndex:   doc.ChunkIndex,
			Score:        doc.Score,
		})
	}
	return hits, nil
}

// buildFilterExpression renders an OData filter for the query's source type
// and category restrictions.
func buildFilterExpression(f Filter) string {
	var clauses []string
	if len(f.SourceTypes) > 0 {
		clauses = append(clauses,
			fmt.Sprintf("search.in(sourceType, '%s', '|')", strings.Join(escapeAll(f.SourceTypes), "|")))
	}
	if len(f.Categories) > 0 {
		clauses = append(clauses,
			fmt.Sprintf("search.in(category, '%s', '|')", strings.Join(escapeAll(f.Categories), "|")))
	}
	return strings.Join(clauses, " and ")
}

func escapeAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ReplaceAll(v, "'", "''")
	}
	return out
}
