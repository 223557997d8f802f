package index

import "context"

// QAPair is one corpus entry. The question is the retrieval key and the
// only text that gets embedded; the answer is an opaque payload returned
// verbatim.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Document is an embedded corpus entry as stored in a collection. The ID
// is positional (doc_<i>) and only valid within its own generation.
type Document struct {
	ID        string
	Question  string
	Answer    string
	Embedding []float32
}

// Match is a raw nearest-neighbour hit with its cosine distance.
type Match struct {
	Document Document
	Distance float64
}

// QueryResult is a scored match returned to callers. RelevanceScore is
// 1 - cosine distance clamped to [0,1]; results are ordered best first.
type QueryResult struct {
	Question       string  `json:"question"`
	Answer         string  `json:"answer"`
	RelevanceScore float64 `json:"relevanceScore"`
}

// Embedder maps texts to fixed-dimension vectors. The same embedder must
// serve both indexing and querying; mixing embedding spaces invalidates
// the collection.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Collection persists one generation of embedded documents.
//
// Replace swaps the entire contents atomically: concurrent Search calls
// observe either the previous generation or the new one in full, never a
// mixture and never an empty collection mid-swap.
type Collection interface {
	Replace(ctx context.Context, docs []Document) error
	Search(ctx context.Context, embedding []float32, topK int) ([]Match, error)
	Count(ctx context.Context) (int, error)
}
