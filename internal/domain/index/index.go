package index

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	apperrors "github.com/yanqian/sales-assistant/pkg/errors"
)

// Index owns the embedding function and the vector collection. One
// instance is shared between the refresh path and concurrent query
// callers; Reindex calls are serialized, Query never blocks on them.
type Index struct {
	embedder   Embedder
	collection Collection
	logger     *slog.Logger

	// reindexMu serializes writers. Readers go straight to the
	// collection, which guarantees old-or-new visibility on its own.
	reindexMu sync.Mutex
}

// New constructs an Index over the given embedder and collection.
func New(embedder Embedder, collection Collection, logger *slog.Logger) *Index {
	return &Index{
		embedder:   embedder,
		collection: collection,
		logger:     logger.With("component", "index"),
	}
}

// Reindex embeds every question and atomically replaces the collection
// contents with the new generation. On any failure the previous
// generation remains queryable. An empty pair set is valid and results
// in a collection that matches nothing.
func (ix *Index) Reindex(ctx context.Context, pairs []QAPair) error {
	ix.reindexMu.Lock()
	defer ix.reindexMu.Unlock()

	// Embeddings are computed before touching the collection so the
	// swap window stays short and a failed embedding call cannot leave
	// the collection half-built.
	docs := make([]Document, 0, len(pairs))
	if len(pairs) > 0 {
		questions := make([]string, len(pairs))
		for i, pair := range pairs {
			questions[i] = pair.Question
		}
		vectors, err := ix.embedder.Embed(ctx, questions)
		if err != nil {
			return apperrors.Wrap("index_error", "embedding corpus failed", err)
		}
		if len(vectors) != len(pairs) {
			return apperrors.Wrap("index_error",
				fmt.Sprintf("embedder returned %d vectors for %d questions", len(vectors), len(pairs)), nil)
		}
		for i, pair := range pairs {
			docs = append(docs, Document{
				ID:        fmt.Sprintf("doc_%d", i),
				Question:  pair.Question,
				Answer:    pair.Answer,
				Embedding: vectors[i],
			})
		}
	}

	if err := ix.collection.Replace(ctx, docs); err != nil {
		return apperrors.Wrap("index_error", "replacing collection failed", err)
	}

	ix.logger.Info("corpus reindexed", "documents", len(docs))
	return nil
}

// Query embeds text and returns up to topK matches ordered by descending
// relevance. Blank text and non-positive topK short-circuit to an empty
// result. Failures are reported as query_error rather than swallowed, so
// callers can tell "no match" from "search unavailable".
func (ix *Index) Query(ctx context.Context, text string, topK int) ([]QueryResult, error) {
	text = strings.TrimSpace(text)
	if text == "" || topK <= 0 {
		return nil, nil
	}

	vectors, err := ix.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, apperrors.Wrap("query_error", "embedding query failed", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, apperrors.Wrap("query_error", "embedder returned no vector", nil)
	}

	matches, err := ix.collection.Search(ctx, vectors[0], topK)
	if err != nil {
		return nil, apperrors.Wrap("query_error", "collection search failed", err)
	}

	results := make([]QueryResult, 0, len(matches))
	for _, match := range matches {
		results = append(results, QueryResult{
			Question:       match.Document.Question,
			Answer:         match.Document.Answer,
			RelevanceScore: relevanceScore(match.Distance),
		})
	}
	return results, nil
}

// Size reports how many documents the current generation holds.
func (ix *Index) Size(ctx context.Context) (int, error) {
	count, err := ix.collection.Count(ctx)
	if err != nil {
		return 0, apperrors.Wrap("query_error", "collection count failed", err)
	}
	return count, nil
}

// relevanceScore converts a cosine distance into a [0,1] score. Cosine
// distance ranges over [0,2], so the raw 1-d formula can go negative for
// opposing vectors; the score is clamped instead of inheriting that.
func relevanceScore(distance float64) float64 {
	score := 1 - distance
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
