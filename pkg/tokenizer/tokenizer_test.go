package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeuristicCount(t *testing.T) {
	h := Heuristic{}

	require.Zero(t, h.Count(""))
	require.Equal(t, 2, h.Count("word"))
	require.Equal(t, 5, h.Count(strings.Repeat("a", 10)))

	// Many short words: never fewer tokens than words.
	require.Equal(t, 5, h.Count("a b c d e"))
}

func TestHeuristicMonotonicOnRepetition(t *testing.T) {
	h := Heuristic{}
	short := h.Count("hello world")
	long := h.Count(strings.Repeat("hello world ", 10))
	require.Greater(t, long, short)
}
