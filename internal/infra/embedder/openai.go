package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/yanqian/sales-assistant/internal/domain/index"
	"github.com/yanqian/sales-assistant/internal/infra/llm/chatgpt"
	"github.com/yanqian/sales-assistant/pkg/tokenizer"
)

// stay well below the provider's 300k token cap per request
const maxBatchTokens = 200_000

// OpenAIEmbedder calls an OpenAI-compatible embeddings API, batching
// inputs under the provider's token cap.
type OpenAIEmbedder struct {
	client  *chatgpt.Client
	model   string
	counter tokenizer.Counter
	logger  *slog.Logger
}

// NewOpenAIEmbedder constructs the embedder.
func NewOpenAIEmbedder(client *chatgpt.Client, model string, counter tokenizer.Counter, logger *slog.Logger) *OpenAIEmbedder {
	if counter == nil {
		counter = tokenizer.Heuristic{}
	}
	return &OpenAIEmbedder{
		client:  client,
		model:   strings.TrimSpace(model),
		counter: counter,
		logger:  logger.With("component", "embedder.openai"),
	}
}

// Embed returns one vector per text, in input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var (
		out         [][]float32
		batch       []string
		batchTokens int
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		resp, err := e.client.CreateEmbedding(ctx, chatgpt.EmbeddingRequest{
			Model: e.model,
			Input: batch,
		})
		if err != nil {
			return fmt.Errorf("create embedding: %w", err)
		}
		if len(resp.Data) != len(batch) {
			return fmt.Errorf("embedding count mismatch: sent %d got %d", len(batch), len(resp.Data))
		}
		sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
		for _, item := range resp.Data {
			vec := make([]float32, len(item.Embedding))
			copy(vec, item.Embedding)
			out = append(out, vec)
		}
		batch = batch[:0]
		batchTokens = 0
		return nil
	}

	for _, text := range texts {
		tokens := e.counter.Count(text)
		if tokens > maxBatchTokens {
			return nil, fmt.Errorf("text too large for embedding request: estimated tokens=%d", tokens)
		}
		if batchTokens+tokens > maxBatchTokens && len(batch) > 0 {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		batch = append(batch, text)
		batchTokens += tokens
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

var _ index.Embedder = (*OpenAIEmbedder)(nil)
