package assistant

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/sales-assistant/internal/domain/index"
	"github.com/yanqian/sales-assistant/internal/infra/embedder"
	"github.com/yanqian/sales-assistant/internal/infra/vectorstore"
	apperrors "github.com/yanqian/sales-assistant/pkg/errors"
	"github.com/yanqian/sales-assistant/pkg/metrics"
	"github.com/yanqian/sales-assistant/pkg/tokenizer"
)

type stubLoader struct {
	mu    sync.Mutex
	pairs []index.QAPair
	err   error
	block chan struct{}
	calls int
}

func (l *stubLoader) Load(_ context.Context) ([]index.QAPair, error) {
	l.mu.Lock()
	l.calls++
	block := l.block
	l.mu.Unlock()
	if block != nil {
		<-block
	}
	return l.pairs, l.err
}

type stubStore struct {
	mu         sync.Mutex
	answers    map[string]CachedAnswer
	increments map[string]int64
	topErr     error
}

func newStubStore() *stubStore {
	return &stubStore{
		answers:    map[string]CachedAnswer{},
		increments: map[string]int64{},
	}
}

func (s *stubStore) GetAnswer(_ context.Context, key string) (CachedAnswer, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.answers[key]
	return rec, ok, nil
}

func (s *stubStore) SaveAnswer(_ context.Context, key string, record CachedAnswer, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[key] = record
	return nil
}

func (s *stubStore) IncrementQuery(_ context.Context, canonical, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.increments[canonical]++
	return nil
}

func (s *stubStore) TopQueries(_ context.Context, _ int) ([]TrendingQuery, error) {
	if s.topErr != nil {
		return nil, s.topErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TrendingQuery, 0, len(s.increments))
	for q, n := range s.increments {
		out = append(out, TrendingQuery{Query: q, Count: n})
	}
	return out, nil
}

type stubSnapshot struct {
	mu     sync.Mutex
	latest []byte
	saved  [][]byte
}

func (s *stubSnapshot) Save(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, append([]byte(nil), data...))
	s.latest = append([]byte(nil), data...)
	return nil
}

func (s *stubSnapshot) Latest(_ context.Context) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return nil, false, nil
	}
	return append([]byte(nil), s.latest...), true, nil
}

type stubChat struct {
	mu      sync.Mutex
	answer  string
	err     error
	calls   int
	systems []string
}

func (c *stubChat) Complete(_ context.Context, system, _ string, _ float32) (string, metrics.TokenUsage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.systems = append(c.systems, system)
	if c.err != nil {
		return "", metrics.TokenUsage{}, c.err
	}
	return c.answer, metrics.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, nil
}

type fixture struct {
	svc      Service
	idx      *index.Index
	loader   *stubLoader
	store    *stubStore
	snapshot *stubSnapshot
	chat     *stubChat
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		loader:   &stubLoader{},
		store:    newStubStore(),
		snapshot: &stubSnapshot{},
		chat:     &stubChat{answer: "generated answer"},
	}
	f.idx = index.New(embedder.NewDeterministicEmbedder(16), vectorstore.NewMemoryCollection(), slog.Default())
	cfg := Config{
		Temperature:      0.3,
		Prompt:           "You are a sales assistant.",
		TopK:             3,
		MaxContextTokens: 4096,
		CacheTTL:         time.Hour,
		TopTrending:      10,
	}
	f.svc = NewService(cfg, f.idx, f.loader, f.store, f.snapshot, f.chat, tokenizer.Heuristic{}, slog.Default())
	return f
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Ask(context.Background(), Request{Question: "   "})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "invalid_input"))
}

func TestAskWithEmptyCorpusReturnsUnmatched(t *testing.T) {
	f := newFixture(t)
	resp, err := f.svc.Ask(context.Background(), Request{Question: "anything?"})
	require.NoError(t, err)
	require.False(t, resp.Matched)
	require.Empty(t, resp.Answer)
	require.Zero(t, f.chat.calls)
	require.EqualValues(t, 1, f.store.increments["anything"])
}

func TestAskGeneratesAndCachesAnswer(t *testing.T) {
	f := newFixture(t)
	f.loader.pairs = []index.QAPair{
		{Question: "What is your return policy?", Answer: "30 days"},
	}
	_, err := f.svc.Refresh(context.Background())
	require.NoError(t, err)

	resp, err := f.svc.Ask(context.Background(), Request{Question: "What is your return policy?"})
	require.NoError(t, err)
	require.True(t, resp.Matched)
	require.Equal(t, "generated answer", resp.Answer)
	require.Equal(t, "llm", resp.Source)
	require.NotEmpty(t, resp.Matches)
	require.NotNil(t, resp.TokenUsage)
	require.Equal(t, 15, resp.TokenUsage.TotalTokens)

	require.Len(t, f.chat.systems, 1)
	require.Contains(t, f.chat.systems[0], "Q: What is your return policy?")
	require.Contains(t, f.chat.systems[0], "A: 30 days")

	// Same question again, normalized differently, hits the cache.
	again, err := f.svc.Ask(context.Background(), Request{Question: "what is your RETURN policy"})
	require.NoError(t, err)
	require.Equal(t, "cache", again.Source)
	require.Equal(t, "generated answer", again.Answer)
	require.Equal(t, 1, f.chat.calls)
}

func TestAskWrapsGenerationFailure(t *testing.T) {
	f := newFixture(t)
	f.loader.pairs = []index.QAPair{{Question: "q", Answer: "a"}}
	_, err := f.svc.Refresh(context.Background())
	require.NoError(t, err)

	f.chat.err = errors.New("model overloaded")
	_, err = f.svc.Ask(context.Background(), Request{Question: "q"})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "llm_error"))
}

func TestRefreshReplacesCorpusAndArchivesSnapshot(t *testing.T) {
	f := newFixture(t)
	f.loader.pairs = []index.QAPair{
		{Question: "q1", Answer: "a1"},
		{Question: "q2", Answer: "a2"},
	}

	result, err := f.svc.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, RefreshResult{Pairs: 2, Source: "source"}, result)

	size, err := f.svc.CorpusSize(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, size)

	require.Len(t, f.snapshot.saved, 1)
	archived := string(f.snapshot.saved[0])
	require.True(t, strings.HasPrefix(archived, "question,answer\n"))
	require.Contains(t, archived, "q1,a1")
}

func TestRefreshIsSingleFlight(t *testing.T) {
	f := newFixture(t)
	f.loader.block = make(chan struct{})
	f.loader.pairs = []index.QAPair{{Question: "q", Answer: "a"}}

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Refresh(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool {
		f.loader.mu.Lock()
		defer f.loader.mu.Unlock()
		return f.loader.calls == 1
	}, time.Second, time.Millisecond)

	_, err := f.svc.Refresh(context.Background())
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "refresh_in_progress"))

	close(f.loader.block)
	require.NoError(t, <-done)
}

func TestRefreshFailureKeepsLiveCorpus(t *testing.T) {
	f := newFixture(t)
	f.loader.pairs = []index.QAPair{{Question: "q", Answer: "old answer"}}
	_, err := f.svc.Refresh(context.Background())
	require.NoError(t, err)

	f.loader.pairs = nil
	f.loader.err = errors.New("sheet unavailable")
	_, err = f.svc.Refresh(context.Background())
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "corpus_error"))

	size, err := f.svc.CorpusSize(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, size)
}

func TestRefreshRestoresSnapshotWhenIndexEmpty(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.snapshot.Save(context.Background(),
		[]byte("question,answer\narchived question,archived answer\n")))
	f.snapshot.saved = nil

	f.loader.err = errors.New("sheet unavailable")
	result, err := f.svc.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, RefreshResult{Pairs: 1, Source: "snapshot"}, result)

	size, err := f.svc.CorpusSize(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, size)

	// A restore must not overwrite the archive it came from.
	require.Empty(t, f.snapshot.saved)
}

func TestRefreshWithoutSnapshotReportsLoadError(t *testing.T) {
	f := newFixture(t)
	f.loader.err = errors.New("sheet unavailable")
	_, err := f.svc.Refresh(context.Background())
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "corpus_error"))
}

func TestTrending(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		_, err := f.svc.Ask(context.Background(), Request{Question: "popular question"})
		require.NoError(t, err)
	}

	queries, err := f.svc.Trending(context.Background())
	require.NoError(t, err)
	require.Len(t, queries, 1)
	require.EqualValues(t, 3, queries[0].Count)
}

func TestTrendingWrapsStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.store.topErr = errors.New("store down")
	_, err := f.svc.Trending(context.Background())
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "query_error"))
}
