package index_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/sales-assistant/internal/domain/index"
	"github.com/yanqian/sales-assistant/internal/infra/embedder"
	"github.com/yanqian/sales-assistant/internal/infra/vectorstore"
	apperrors "github.com/yanqian/sales-assistant/pkg/errors"
)

// mapEmbedder returns hand-picked vectors so tests can control distances.
type mapEmbedder struct {
	vectors map[string][]float32
	fail    bool
}

func (e *mapEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.fail {
		return nil, errors.New("embedding backend down")
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, ok := e.vectors[text]
		if !ok {
			vec = []float32{0, 0, 1}
		}
		out[i] = vec
	}
	return out, nil
}

func newTestIndex(t *testing.T, emb index.Embedder) *index.Index {
	t.Helper()
	return index.New(emb, vectorstore.NewMemoryCollection(), slog.Default())
}

func TestReindexEmptyCorpus(t *testing.T) {
	ix := newTestIndex(t, embedder.NewDeterministicEmbedder(16))

	require.NoError(t, ix.Reindex(context.Background(), nil))

	results, err := ix.Query(context.Background(), "anything", 3)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestTopKBound(t *testing.T) {
	ix := newTestIndex(t, embedder.NewDeterministicEmbedder(16))
	pairs := []index.QAPair{
		{Question: "q one", Answer: "a1"},
		{Question: "q two", Answer: "a2"},
		{Question: "q three", Answer: "a3"},
		{Question: "q four", Answer: "a4"},
		{Question: "q five", Answer: "a5"},
	}
	require.NoError(t, ix.Reindex(context.Background(), pairs))

	for _, tc := range []struct {
		topK int
		want int
	}{
		{0, 0},
		{1, 1},
		{3, 3},
		{5, 5},
		{10, 5},
	} {
		results, err := ix.Query(context.Background(), "q one", tc.topK)
		require.NoError(t, err)
		require.Len(t, results, tc.want, "topK=%d", tc.topK)
	}
}

func TestRoundTripIdentity(t *testing.T) {
	ix := newTestIndex(t, embedder.NewDeterministicEmbedder(16))
	pairs := []index.QAPair{
		{Question: "What is your return policy?", Answer: "30 days"},
		{Question: "Do you ship internationally?", Answer: "Yes, to 40 countries"},
	}
	require.NoError(t, ix.Reindex(context.Background(), pairs))

	results, err := ix.Query(context.Background(), "What is your return policy?", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "30 days", results[0].Answer)
	require.InDelta(t, 1.0, results[0].RelevanceScore, 1e-6)
}

func TestQueryDeterminism(t *testing.T) {
	ix := newTestIndex(t, embedder.NewDeterministicEmbedder(16))
	pairs := []index.QAPair{
		{Question: "alpha", Answer: "a"},
		{Question: "beta", Answer: "b"},
		{Question: "gamma", Answer: "c"},
	}
	require.NoError(t, ix.Reindex(context.Background(), pairs))

	first, err := ix.Query(context.Background(), "alpha", 3)
	require.NoError(t, err)
	second, err := ix.Query(context.Background(), "alpha", 3)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestBlankQueryShortCircuits(t *testing.T) {
	ix := newTestIndex(t, embedder.NewDeterministicEmbedder(16))
	require.NoError(t, ix.Reindex(context.Background(), []index.QAPair{{Question: "q", Answer: "a"}}))

	results, err := ix.Query(context.Background(), "   ", 3)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestScenarioRelevanceOrdering(t *testing.T) {
	emb := &mapEmbedder{vectors: map[string][]float32{
		"What is your return policy?":    {1, 0, 0},
		"Do you ship internationally?":   {0, 1, 0},
		"Can I return a defective item?": {0.9, 0.1, 0},
		"random unrelated text":          {0, 0, 1},
	}}
	ix := newTestIndex(t, emb)
	pairs := []index.QAPair{
		{Question: "What is your return policy?", Answer: "30 days"},
		{Question: "Do you ship internationally?", Answer: "Yes, to 40 countries"},
	}
	require.NoError(t, ix.Reindex(context.Background(), pairs))

	relevant, err := ix.Query(context.Background(), "Can I return a defective item?", 1)
	require.NoError(t, err)
	require.Len(t, relevant, 1)
	require.Equal(t, "30 days", relevant[0].Answer)

	unrelated, err := ix.Query(context.Background(), "random unrelated text", 1)
	require.NoError(t, err)
	require.Len(t, unrelated, 1)
	require.Greater(t, relevant[0].RelevanceScore, unrelated[0].RelevanceScore)
}

func TestScoreClampedToUnitRange(t *testing.T) {
	// Opposite vectors put cosine distance at 2, so the raw 1-d formula
	// would yield -1.
	emb := &mapEmbedder{vectors: map[string][]float32{
		"indexed":  {1, 0, 0},
		"opposite": {-1, 0, 0},
	}}
	ix := newTestIndex(t, emb)
	require.NoError(t, ix.Reindex(context.Background(), []index.QAPair{{Question: "indexed", Answer: "a"}}))

	results, err := ix.Query(context.Background(), "opposite", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.GreaterOrEqual(t, results[0].RelevanceScore, 0.0)
	require.LessOrEqual(t, results[0].RelevanceScore, 1.0)
}

func TestReindexFailureKeepsPreviousGeneration(t *testing.T) {
	emb := &mapEmbedder{vectors: map[string][]float32{}}
	ix := newTestIndex(t, emb)
	require.NoError(t, ix.Reindex(context.Background(), []index.QAPair{
		{Question: "old question", Answer: "old answer"},
	}))

	emb.fail = true
	err := ix.Reindex(context.Background(), []index.QAPair{
		{Question: "new question", Answer: "new answer"},
	})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "index_error"))

	emb.fail = false
	results, err := ix.Query(context.Background(), "old question", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "old answer", results[0].Answer)
}

func TestQueryErrorIsDistinguishable(t *testing.T) {
	emb := &mapEmbedder{vectors: map[string][]float32{}}
	ix := newTestIndex(t, emb)
	require.NoError(t, ix.Reindex(context.Background(), []index.QAPair{{Question: "q", Answer: "a"}}))

	emb.fail = true
	_, err := ix.Query(context.Background(), "q", 1)
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "query_error"))
}

func TestConcurrentQueriesObserveWholeGenerations(t *testing.T) {
	ix := newTestIndex(t, embedder.NewDeterministicEmbedder(16))

	genA := []index.QAPair{
		{Question: "a1", Answer: "A"},
		{Question: "a2", Answer: "A"},
	}
	genB := []index.QAPair{
		{Question: "b1", Answer: "B"},
		{Question: "b2", Answer: "B"},
		{Question: "b3", Answer: "B"},
	}
	require.NoError(t, ix.Reindex(context.Background(), genA))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errCh := make(chan error, 8)

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				results, err := ix.Query(context.Background(), "a1", 10)
				if err != nil {
					errCh <- err
					return
				}
				// Either generation in full, never a mixture.
				if len(results) != len(genA) && len(results) != len(genB) {
					errCh <- errors.New("observed partial generation")
					return
				}
				answer := results[0].Answer
				for _, r := range results {
					if r.Answer != answer {
						errCh <- errors.New("observed mixed generations")
						return
					}
				}
			}
		}()
	}

	for i := 0; i < 25; i++ {
		require.NoError(t, ix.Reindex(context.Background(), genB))
		require.NoError(t, ix.Reindex(context.Background(), genA))
	}
	close(stop)
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}
}
