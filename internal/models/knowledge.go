package models

// NoKnowledgeSummary is the summary used when retrieval produced nothing.
const NoKnowledgeSummary = "No relevant knowledge base documents found."

// KnowledgeFragment is one retrieved text span with its provenance. Two
// fragments are the same fragment iff (FileName, ChunkIndex) match.
type KnowledgeFragment struct {
	Content      string  `json:"content"`
	FileName     string  `json:"file_name"`
	SourceType   string  `json:"source_type"`
	SectionTitle string  `json:"section_title,omitempty"`
	ChunkIndex   int     `json:"chunk_index"`
	Score        float64 `json:"score"`
}

// Identity returns the deduplication key for the fragment.
func (f KnowledgeFragment) Identity() FragmentID {
	return FragmentID{FileName: f.FileName, ChunkIndex: f.ChunkIndex}
}

// FragmentID is the (document, chunk) identity fragments are deduplicated by.
type FragmentID struct {
	FileName   string
	ChunkIndex int
}

// KnowledgeContext is an ordered, bounded set of fragments plus a
// human-readable summary. Produced fresh per query, never mutated after
// construction.
type KnowledgeContext struct {
	Fragments []KnowledgeFragment `json:"fragments"`
	Summary   string              `json:"summary"`
}

// Empty reports whether the context carries no fragments.
func (k KnowledgeContext) Empty() bool {
	return len(k.Fragments) == 0
}

// EmptyKnowledgeContext returns the canonical empty context.
func EmptyKnowledgeContext() KnowledgeContext {
	return KnowledgeContext{Summary: NoKnowledgeSummary}
}
