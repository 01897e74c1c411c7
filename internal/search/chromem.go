package search

import (
	"context"
	"fmt"
	"strconv"

	chromem "github.com/philippgille/chromem-go"
)

// ChromemBackend is an embedded vector store implementation of [Backend],
// used for local evaluation runs and tests.
type ChromemBackend struct {
	name       string
	collection *chromem.Collection
}

// NewChromemBackend creates (or reopens) a collection in the given database.
// persistPath may be empty for an in-memory store.
func NewChromemBackend(name, persistPath string, embedder Embedder) (*ChromemBackend, error) {
	var db *chromem.DB
	var err error

	if persistPath != "" {
		db, err = chromem.NewPersistentDB(persistPath, false)
		if err != nil {
			return nil, fmt.Errorf("opening vector store: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	collection, err := db.GetOrCreateCollection(name, nil, embeddingFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("opening collection %s: %w", name, err)
	}

	return &ChromemBackend{name: name, collection: collection}, nil
}

func embeddingFunc(embedder Embedder) chromem.EmbeddingFunc {
	if embedder == nil {
		return nil
	}
	return func(ctx context.Context, text string) ([]float32, error) {
		return embedder.Embed(ctx, text)
	}
}

// Name implements [Backend].
func (b *ChromemBackend) Name() string {
	return b.name
}

// Add seeds documents into the collection. Index construction proper happens
// out of band; this exists for local stores and test fixtures.
func (b *ChromemBackend) Add(ctx context.Context, hits []Hit) error {
	for i, h := range hits {
		doc := chromem.Document{
			ID:      fmt.Sprintf("%s-%d", h.FileName, h.ChunkIndex),
			Content: h.Content,
			Metadata: map[string]string{
				"fileName":     h.FileName,
				"sourceType":   h.SourceType,
				"category":     h.Category,
				"sectionTitle": h.SectionTitle,
				"chunkIndex":   strconv.Itoa(h.ChunkIndex),
			},
		}
		if err := b.collection.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("adding document %d: %w", i, err)
		}
	}
	return nil
}

// Query implements [Backend]. Source-type and category filtering is applied
// in-process because chromem metadata filters are single-value exact matches.
func (b *ChromemBackend) Query(ctx context.Context, q Query) ([]Hit, error) {
	count := b.collection.Count()
	if count == 0 {
		return nil, nil
	}

	n := q.TopK
	if n > count {
		n = count
	}

	// Over-fetch when a filter is set so post-filtering can still fill TopK.
	fetch := n
	if (len(q.Filter.SourceTypes) > 0 || len(q.Filter.Categories) > 0) && fetch*2 <= count {
		fetch *= 2
	}

	results, err := b.collection.Query(ctx, q.Text, fetch, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection %s: %w", b.name, err)
	}

	hits := make([]Hit, 0, n)
	for _, res := range results {
		chunkIndex, _ := strconv.Atoi(res.Metadata["chunkIndex"])
		hit := Hit{
			Content:      res.Content,
			FileName:     res.Metadata["fileName"],
			SourceType:   res.Metadata["sourceType"],
			Category:     res.Metadata["category"],
			SectionTitle: res.Metadata["sectionTitle"],
			ChunkIndex:   chunkIndex,
			Score:        float64(res.Similarity),
		}
		if !matchesFilter(hit, q.Filter) {
			continue
		}
		hits = append(hits, hit)
		if len(hits) == n {
			break
		}
	}
	return hits, nil
}
