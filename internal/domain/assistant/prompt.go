package assistant

import (
	"fmt"
	"strings"

	"github.com/yanqian/sales-assistant/internal/domain/index"
	"github.com/yanqian/sales-assistant/pkg/tokenizer"
)

// buildSystemPrompt assembles the grounding context under the token
// budget. Matches arrive best-first, so when the budget runs out the
// weakest context is what gets dropped. At least one block is always
// included even if it alone exceeds the budget; a context-free prompt
// would defeat retrieval entirely.
func buildSystemPrompt(base string, matches []index.QueryResult, counter tokenizer.Counter, maxTokens int) string {
	var blocks []string
	used := counter.Count(base)
	for i, match := range matches {
		block := fmt.Sprintf("Q: %s\nA: %s", match.Question, match.Answer)
		cost := counter.Count(block)
		if i > 0 && maxTokens > 0 && used+cost > maxTokens {
			break
		}
		blocks = append(blocks, block)
		used += cost
	}
	return base + "\n\nContext:\n" + strings.Join(blocks, "\n\n")
}
