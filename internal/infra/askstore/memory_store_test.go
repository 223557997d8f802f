package askstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/sales-assistant/internal/domain/assistant"
)

func TestMemoryStoreAnswerRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	record := assistant.CachedAnswer{Question: "q", Answer: "a", CreatedAt: time.Now().UTC()}
	require.NoError(t, s.SaveAnswer(context.Background(), "key", record, time.Hour))

	got, ok, err := s.GetAnswer(context.Background(), "key")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, record, got)

	_, ok, err = s.GetAnswer(context.Background(), "other")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStoreAnswerExpiry(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.SaveAnswer(context.Background(), "key",
		assistant.CachedAnswer{Answer: "a"}, time.Millisecond))

	require.Eventually(t, func() bool {
		_, ok, err := s.GetAnswer(context.Background(), "key")
		return err == nil && !ok
	}, time.Second, 5*time.Millisecond)
}

func TestMemoryStoreZeroTTLNeverExpires(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.SaveAnswer(context.Background(), "key",
		assistant.CachedAnswer{Answer: "a"}, 0))

	_, ok, err := s.GetAnswer(context.Background(), "key")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMemoryStoreTopQueries(t *testing.T) {
	s := NewMemoryStore()
	bump := func(canonical, display string, times int) {
		for i := 0; i < times; i++ {
			require.NoError(t, s.IncrementQuery(context.Background(), canonical, display))
		}
	}
	bump("return policy", "What is your Return Policy?", 3)
	bump("shipping", "Do you ship internationally?", 5)
	bump("pricing", "How much does it cost?", 1)

	top, err := s.TopQueries(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, []assistant.TrendingQuery{
		{Query: "Do you ship internationally?", Count: 5},
		{Query: "What is your Return Policy?", Count: 3},
	}, top)
}

func TestMemoryStoreTopQueriesTieOrder(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.IncrementQuery(context.Background(), "b", "b"))
	require.NoError(t, s.IncrementQuery(context.Background(), "a", "a"))

	top, err := s.TopQueries(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, "a", top[0].Query)
	require.Equal(t, "b", top[1].Query)
}

func TestMemoryStoreKeepsFirstDisplayForm(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.IncrementQuery(context.Background(), "k", "First form?"))
	require.NoError(t, s.IncrementQuery(context.Background(), "k", "second FORM"))

	top, err := s.TopQueries(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "First form?", top[0].Query)
	require.EqualValues(t, 2, top[0].Count)
}
