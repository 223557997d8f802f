package csvfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/sales-assistant/internal/domain/index"
)

func TestLoaderLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.csv")
	content := "question,answer\n" +
		"What is your return policy?,30 days\n" +
		"\"Do you, by any chance, ship internationally?\",Yes\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	pairs, err := NewLoader(path).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, []index.QAPair{
		{Question: "What is your return policy?", Answer: "30 days"},
		{Question: "Do you, by any chance, ship internationally?", Answer: "Yes"},
	}, pairs)
}

func TestLoaderLoadMissingFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "nope.csv")).Load(context.Background())
	require.Error(t, err)
}

func TestParseRaggedRows(t *testing.T) {
	pairs, err := Parse(strings.NewReader("question,answer\nshort row\n"))
	require.NoError(t, err)
	require.Equal(t, []index.QAPair{{Question: "short row", Answer: ""}}, pairs)
}

func TestParseMissingColumns(t *testing.T) {
	_, err := Parse(strings.NewReader("foo,bar\nq,a\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing required columns")
}
