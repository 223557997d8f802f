package assistant

import (
	"bytes"
	"context"
	"encoding/csv"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/yanqian/sales-assistant/internal/domain/index"
	apperrors "github.com/yanqian/sales-assistant/pkg/errors"
	"github.com/yanqian/sales-assistant/pkg/tokenizer"
)

// Config holds runtime knobs for the assistant.
type Config struct {
	Temperature      float32
	Prompt           string
	TopK             int
	MaxContextTokens int
	CacheTTL         time.Duration
	TopTrending      int
}

// Service exposes the question answering and corpus refresh flows.
type Service interface {
	Ask(ctx context.Context, req Request) (Response, error)
	Refresh(ctx context.Context) (RefreshResult, error)
	Trending(ctx context.Context) ([]TrendingQuery, error)
	CorpusSize(ctx context.Context) (int, error)
}

type service struct {
	cfg      Config
	idx      *index.Index
	loader   CorpusLoader
	store    AnswerStore
	snapshot SnapshotStore
	client   ChatClient
	counter  tokenizer.Counter
	logger   *slog.Logger

	// refreshMu makes Refresh single-flight: a refresh that fires while
	// one is running is skipped, not queued behind it.
	refreshMu sync.Mutex
}

// NewService wires up the assistant domain.
func NewService(cfg Config, idx *index.Index, loader CorpusLoader, store AnswerStore, snapshot SnapshotStore, client ChatClient, counter tokenizer.Counter, logger *slog.Logger) Service {
	if counter == nil {
		counter = tokenizer.Heuristic{}
	}
	return &service{
		cfg:      cfg,
		idx:      idx,
		loader:   loader,
		store:    store,
		snapshot: snapshot,
		client:   client,
		counter:  counter,
		logger:   logger.With("component", "assistant.service"),
	}
}

func (s *service) Ask(ctx context.Context, req Request) (Response, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return Response{}, apperrors.Wrap("invalid_input", "question cannot be empty", nil)
	}
	cacheKey := normalizeQuestion(question)

	if cached, ok, err := s.store.GetAnswer(ctx, cacheKey); err != nil {
		s.logger.Warn("answer cache lookup failed", "error", err)
	} else if ok {
		s.bumpTrending(ctx, cacheKey, question)
		return Response{
			Question: question,
			Answer:   cached.Answer,
			Matched:  true,
			Source:   "cache",
		}, nil
	}

	matches, err := s.idx.Query(ctx, question, s.cfg.TopK)
	if err != nil {
		return Response{}, err
	}
	if len(matches) == 0 {
		s.bumpTrending(ctx, cacheKey, question)
		return Response{Question: question, Matched: false}, nil
	}

	system := buildSystemPrompt(s.cfg.Prompt, matches, s.counter, s.cfg.MaxContextTokens)
	answer, usage, err := s.client.Complete(ctx, system, question, s.cfg.Temperature)
	if err != nil {
		return Response{}, apperrors.Wrap("llm_error", "generation failed", err)
	}

	if err := s.store.SaveAnswer(ctx, cacheKey, CachedAnswer{
		Question:  question,
		Answer:    answer,
		CreatedAt: time.Now().UTC(),
	}, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("answer cache save failed", "error", err)
	}
	s.bumpTrending(ctx, cacheKey, question)

	resp := Response{
		Question: question,
		Answer:   answer,
		Matched:  true,
		Source:   "llm",
		Matches:  matches,
	}
	if !usage.IsZero() {
		resp.TokenUsage = &usage
	}
	return resp, nil
}

// Refresh loads the corpus and reindexes it as one generation. A failed
// load or reindex leaves the previous generation live. A successful
// refresh archives the corpus as a CSV snapshot, best-effort.
func (s *service) Refresh(ctx context.Context) (RefreshResult, error) {
	if !s.refreshMu.TryLock() {
		return RefreshResult{}, apperrors.Wrap("refresh_in_progress", "a corpus refresh is already running", nil)
	}
	defer s.refreshMu.Unlock()

	source := "source"
	pairs, err := s.loader.Load(ctx)
	if err != nil {
		loadErr := apperrors.Wrap("corpus_error", "corpus fetch failed", err)
		// Fall back to the last archived corpus only when nothing is
		// indexed yet; otherwise the live generation is already better.
		size, sizeErr := s.idx.Size(ctx)
		if sizeErr != nil || size > 0 {
			return RefreshResult{}, loadErr
		}
		restored, ok := s.restoreSnapshot(ctx)
		if !ok {
			return RefreshResult{}, loadErr
		}
		s.logger.Warn("corpus source unavailable, restored snapshot", "pairs", len(restored), "error", err)
		pairs = restored
		source = "snapshot"
	}

	if err := s.idx.Reindex(ctx, pairs); err != nil {
		return RefreshResult{}, err
	}

	if source == "source" {
		s.archiveSnapshot(ctx, pairs)
	}
	return RefreshResult{Pairs: len(pairs), Source: source}, nil
}

func (s *service) Trending(ctx context.Context) ([]TrendingQuery, error) {
	recs, err := s.store.TopQueries(ctx, s.cfg.TopTrending)
	if err != nil {
		return nil, apperrors.Wrap("query_error", "failed to load trending queries", err)
	}
	return recs, nil
}

func (s *service) CorpusSize(ctx context.Context) (int, error) {
	return s.idx.Size(ctx)
}

func (s *service) bumpTrending(ctx context.Context, canonical, display string) {
	if err := s.store.IncrementQuery(ctx, canonical, display); err != nil {
		s.logger.Warn("trending increment failed", "error", err)
	}
}

func (s *service) archiveSnapshot(ctx context.Context, pairs []index.QAPair) {
	if s.snapshot == nil {
		return
	}
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	_ = writer.Write([]string{"question", "answer"})
	for _, pair := range pairs {
		_ = writer.Write([]string{pair.Question, pair.Answer})
	}
	writer.Flush()
	if err := s.snapshot.Save(ctx, buf.Bytes()); err != nil {
		s.logger.Warn("corpus snapshot save failed", "error", err)
	}
}

func (s *service) restoreSnapshot(ctx context.Context) ([]index.QAPair, bool) {
	if s.snapshot == nil {
		return nil, false
	}
	data, ok, err := s.snapshot.Latest(ctx)
	if err != nil || !ok {
		if err != nil {
			s.logger.Warn("corpus snapshot read failed", "error", err)
		}
		return nil, false
	}
	pairs, err := parseSnapshotCSV(data)
	if err != nil {
		s.logger.Warn("corpus snapshot malformed", "error", err)
		return nil, false
	}
	return pairs, true
}

func parseSnapshotCSV(data []byte) ([]index.QAPair, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	pairs := make([]index.QAPair, 0, len(rows))
	for i, row := range rows {
		if i == 0 || len(row) < 1 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		pair := index.QAPair{Question: row[0]}
		if len(row) > 1 {
			pair.Answer = row[1]
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}
