package vectorstore

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/yanqian/sales-assistant/internal/domain/index"
)

// MemoryCollection is an in-memory index.Collection used for tests/dev.
// Replace builds the new generation aside and swaps a single slice
// reference under the lock, so readers always see a complete generation.
type MemoryCollection struct {
	mu   sync.RWMutex
	docs []index.Document
}

// NewMemoryCollection constructs an empty collection.
func NewMemoryCollection() *MemoryCollection {
	return &MemoryCollection{}
}

// Replace implements index.Collection.
func (c *MemoryCollection) Replace(_ context.Context, docs []index.Document) error {
	next := make([]index.Document, len(docs))
	for i, doc := range docs {
		next[i] = doc
		next[i].Embedding = append([]float32(nil), doc.Embedding...)
	}
	c.mu.Lock()
	c.docs = next
	c.mu.Unlock()
	return nil
}

// Search implements index.Collection with brute-force cosine distance.
// Ties are broken by document ID so identical inputs always produce the
// same order.
func (c *MemoryCollection) Search(_ context.Context, embedding []float32, topK int) ([]index.Match, error) {
	c.mu.RLock()
	docs := c.docs
	c.mu.RUnlock()

	if topK <= 0 || len(docs) == 0 {
		return nil, nil
	}

	matches := make([]index.Match, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Embedding) != len(embedding) {
			return nil, errors.New("embedding dimension mismatch")
		}
		matches = append(matches, index.Match{
			Document: doc,
			Distance: cosineDistance(embedding, doc.Embedding),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Document.ID < matches[j].Document.ID
	})

	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

// Count implements index.Collection.
func (c *MemoryCollection) Count(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs), nil
}

// cosineDistance is 1 - cosine similarity, matching pgvector's <=>
// operator. Zero vectors are treated as maximally distant.
func cosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

var _ index.Collection = (*MemoryCollection)(nil)
