package assistant

import (
	"context"
	"time"

	"github.com/yanqian/sales-assistant/internal/domain/index"
	"github.com/yanqian/sales-assistant/pkg/metrics"
)

// Request encapsulates one inbound user question.
type Request struct {
	Question string `json:"question"`
}

// Response is returned to the transport layer. When Matched is false no
// answer was generated and the caller renders its own "no match" copy.
type Response struct {
	Question   string              `json:"question"`
	Answer     string              `json:"answer,omitempty"`
	Matched    bool                `json:"matched"`
	Source     string              `json:"source,omitempty"`
	Matches    []index.QueryResult `json:"matches,omitempty"`
	TokenUsage *metrics.TokenUsage `json:"tokenUsage,omitempty"`
}

// RefreshResult reports the outcome of a completed corpus refresh.
type RefreshResult struct {
	Pairs  int    `json:"pairs"`
	Source string `json:"source"`
}

// TrendingQuery represents a frequently asked question.
type TrendingQuery struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// CachedAnswer is the payload persisted in the answer cache.
type CachedAnswer struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"createdAt"`
}

// CorpusLoader produces the current ordered pair set from the external
// tabular source. Its retry budget is internal; a returned error is
// terminal for the refresh attempt.
type CorpusLoader interface {
	Load(ctx context.Context) ([]index.QAPair, error)
}

// AnswerStore caches generated answers and tracks question popularity.
type AnswerStore interface {
	GetAnswer(ctx context.Context, key string) (CachedAnswer, bool, error)
	SaveAnswer(ctx context.Context, key string, record CachedAnswer, ttl time.Duration) error
	IncrementQuery(ctx context.Context, canonical, display string) error
	TopQueries(ctx context.Context, limit int) ([]TrendingQuery, error)
}

// SnapshotStore archives the corpus as CSV after successful refreshes
// and serves the most recent archive back when the source is down.
type SnapshotStore interface {
	Save(ctx context.Context, data []byte) error
	Latest(ctx context.Context) ([]byte, bool, error)
}

// ChatClient is the generation backend; the assistant passes its output
// through verbatim.
type ChatClient interface {
	Complete(ctx context.Context, system, user string, temperature float32) (string, metrics.TokenUsage, error)
}
