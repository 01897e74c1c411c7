// Package search defines the vector/full-text backend port consumed by the
// knowledge retriever, with an Azure AI Search implementation for production
// and an embedded chromem-go implementation for local use and tests.
package search

import "context"

// Hit is one ranked document returned by a backend query.
type Hit struct {
	Content      string
	FileName     string
	SourceType   string
	Category     string
	SectionTitle string
	ChunkIndex   int
	Score        float64
}

// Filter narrows a query to specific source types or categories. Empty
// slices mean no restriction.
type Filter struct {
	SourceTypes []string
	Categories  []string
}

// Query is one ranked-retrieval request.
type Query struct {
	Text   string
	TopK   int
	Filter Filter
}

// Backend answers ranked-retrieval queries against one underlying index.
type Backend interface {
	// Query returns up to q.TopK hits ordered by descending score.
	Query(ctx context.Context, q Query) ([]Hit, error)

	// Name identifies the index for logging and diagnostics.
	Name() string
}

// Embedder converts query text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

func matchesFilter(hit Hit, f Filter) bool {
	if len(f.SourceTypes) > 0 && !containsString(f.SourceTypes, hit.SourceType) {
		return false
	}
	if len(f.Categories) > 0 && !containsString(f.Categories, hit.Category) {
		return false
	}
	return true
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
