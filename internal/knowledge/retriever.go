// Package knowledge turns queries into ranked, deduplicated knowledge
// context by fanning out to the configured search indexes and merging their
// results. Retrieval failures degrade to empty contributions, never errors.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/bidpanel/bidpanel/internal/models"
	"github.com/bidpanel/bidpanel/internal/search"
)

// secondaryReplaceFactor is the minimum length ratio at which an OCR-index
// fragment replaces the primary-index fragment for the same document. Covers
// documents whose primary extraction failed on image-heavy pages.
const secondaryReplaceFactor = 3

// Options narrows one retrieval call.
type Options struct {
	TopK             int
	SourceTypeFilter []string
	CategoryFilter   []string
}

// Retriever merges ranked results from a primary (text) index and an
// optional secondary (OCR/image-derived) index.
type Retriever struct {
	primary   search.Backend
	secondary search.Backend
	logger    *slog.Logger
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithSecondary attaches the OCR/image-derived index.
func WithSecondary(backend search.Backend) RetrieverOption {
	return func(r *Retriever) {
		r.secondary = backend
	}
}

// WithLogger replaces the default logger.
func WithLogger(logger *slog.Logger) RetrieverOption {
	return func(r *Retriever) {
		r.logger = logger
	}
}

// NewRetriever creates a retriever over the primary index. primary may be nil
// when the backend is not configured; IsConfigured then reports false and
// callers must soft-skip retrieval.
func NewRetriever(primary search.Backend, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		primary: primary,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// IsConfigured reports whether the underlying backend is usable. Callers
// treat false as a soft-skip, not an error.
func (r *Retriever) IsConfigured() bool {
	return r != nil && r.primary != nil
}

// Retrieve returns the top-K fragments for one query, merging the primary
// and secondary indexes. A failure of either index contributes nothing but
// never fails the call.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts Options) (models.KnowledgeContext, error) {
	if !r.IsConfigured() {
		return models.EmptyKnowledgeContext(), fmt.Errorf("knowledge backend is not configured")
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}

	q := search.Query{
		Text: query,
		TopK: opts.TopK,
		Filter: search.Filter{
			SourceTypes: opts.SourceTypeFilter,
			Categories:  opts.CategoryFilter,
		},
	}

	var primaryHits, secondaryHits []search.Hit

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := r.primary.Query(gctx, q)
		if err != nil {
			r.logger.Warn("primary index query failed", "index", r.primary.Name(), "error", err)
			return nil
		}
		primaryHits = hits
		return nil
	})
	if r.secondary != nil {
		g.Go(func() error {
			hits, err := r.secondary.Query(gctx, q)
			if err != nil {
				r.logger.Warn("secondary index query failed", "index", r.secondary.Name(), "error", err)
				return nil
			}
			secondaryHits = hits
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures degrade to empty hits

	fragments := mergeIndexes(primaryHits, secondaryHits)
	if len(fragments) > opts.TopK {
		fragments = fragments[:opts.TopK]
	}

	return buildContext(fragments), nil
}

// RetrieveMany consolidates several queries into one context, deduplicating
// fragments by (fileName, chunkIndex) identity across queries. Used to turn
// a handful of requirement statements into a single specialist context.
func (r *Retriever) RetrieveMany(ctx context.Context, queries []string, topKPerQuery int) (models.KnowledgeContext, error) {
	if !r.IsConfigured() {
		return models.EmptyKnowledgeContext(), fmt.Errorf("knowledge backend is not configured")
	}
	if len(queries) == 0 {
		return models.EmptyKnowledgeContext(), nil
	}
	if topKPerQuery <= 0 {
		topKPerQuery = 2
	}

	perQuery := make([][]models.KnowledgeFragment, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, query := range queries {
		g.Go(func() error {
			kc, err := r.Retrieve(gctx, query, Options{TopK: topKPerQuery})
			if err != nil {
				r.logger.Warn("retrieval failed for query", "query", query, "error", err)
				return nil
			}
			perQuery[i] = kc.Fragments
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[models.FragmentID]bool)
	var union []models.KnowledgeFragment
	for _, fragments := range perQuery {
		for _, f := range fragments {
			if seen[f.Identity()] {
				continue
			}
			seen[f.Identity()] = true
			union = append(union, f)
		}
	}

	return buildContext(union), nil
}

// mergeIndexes keeps primary entries by default; a secondary entry replaces
// the primary entry for the same document only when its text is at least 3x
// longer. Secondary entries for documents the primary never produced are
// appended.
func mergeIndexes(primary, secondary []search.Hit) []models.KnowledgeFragment {
	byDocument := make(map[string]int, len(primary))
	merged := make([]models.KnowledgeFragment, 0, len(primary))

	for _, hit := range primary {
		byDocument[hit.FileName] = len(merged)
		merged = append(merged, toFragment(hit))
	}

	for _, hit := range secondary {
		idx, exists := byDocument[hit.FileName]
		if !exists {
			byDocument[hit.FileName] = len(merged)
			merged = append(merged, toFragment(hit))
			continue
		}
		if len(hit.Content) >= secondaryReplaceFactor*len(merged[idx].Content) {
			merged[idx] = toFragment(hit)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	return merged
}

func toFragment(hit search.Hit) models.KnowledgeFragment {
	return models.KnowledgeFragment{
		Content:      hit.Content,
		FileName:     hit.FileName,
		SourceType:   hit.SourceType,
		SectionTitle: hit.SectionTitle,
		ChunkIndex:   hit.ChunkIndex,
		Score:        hit.Score,
	}
}

func buildContext(fragments []models.KnowledgeFragment) models.KnowledgeContext {
	if len(fragments) == 0 {
		return models.EmptyKnowledgeContext()
	}

	documents := make(map[string]bool)
	for _, f := range fragments {
		documents[f.FileName] = true
	}

	return models.KnowledgeContext{
		Fragments: fragments,
		Summary: fmt.Sprintf("Found %d relevant fragments across %d knowledge base documents.",
			len(fragments), len(documents)),
	}
}
