// Package csvfile loads the Q/A corpus from a local CSV file. It backs
// development setups and the snapshot restore path, which archives the
// corpus in the same format.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/yanqian/sales-assistant/internal/domain/index"
	"github.com/yanqian/sales-assistant/internal/infra/corpus"
)

// Loader reads question/answer pairs from one CSV file.
type Loader struct {
	path string
}

// NewLoader constructs the loader.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load reads and validates the file. The header row must carry question
// and answer columns, same contract as the spreadsheet source.
func (l *Loader) Load(_ context.Context) ([]index.QAPair, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open corpus file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse decodes CSV content from any reader using the corpus contract.
func Parse(r io.Reader) ([]index.QAPair, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read corpus csv: %w", err)
	}
	return corpus.ParseTable(rows)
}
