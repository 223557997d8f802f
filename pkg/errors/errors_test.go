package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapAndIsCode(t *testing.T) {
	base := errors.New("boom")
	err := Wrap("corpus_error", "corpus fetch failed", base)

	require.True(t, IsCode(err, "corpus_error"))
	require.False(t, IsCode(err, "index_error"))
	require.ErrorIs(t, err, base)
	require.Equal(t, "corpus fetch failed: boom", err.Error())
}

func TestWrapWithoutCause(t *testing.T) {
	err := Wrap("invalid_input", "question cannot be empty", nil)
	require.Equal(t, "question cannot be empty", err.Error())
	require.True(t, IsCode(err, "invalid_input"))
}

func TestIsCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", Wrap("query_error", "search failed", nil))
	require.True(t, IsCode(err, "query_error"))
	require.False(t, IsCode(errors.New("plain"), "query_error"))
}
