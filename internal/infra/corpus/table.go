// Package corpus turns external Q/A tables into ordered pair sets.
package corpus

import (
	"fmt"
	"strings"

	"github.com/yanqian/sales-assistant/internal/domain/index"
)

// ParseTable validates a raw row set against the corpus contract: the
// first row is a header containing question and answer columns (matched
// case-insensitively), every following row is one pair. Rows with a
// blank question are skipped; rows too short for the answer column get
// an empty answer.
func ParseTable(rows [][]string) ([]index.QAPair, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	questionCol, answerCol := -1, -1
	for i, name := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "question":
			if questionCol < 0 {
				questionCol = i
			}
		case "answer":
			if answerCol < 0 {
				answerCol = i
			}
		}
	}
	var missing []string
	if questionCol < 0 {
		missing = append(missing, "question")
	}
	if answerCol < 0 {
		missing = append(missing, "answer")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	pairs := make([]index.QAPair, 0, len(rows)-1)
	for _, row := range rows[1:] {
		var pair index.QAPair
		if questionCol < len(row) {
			pair.Question = strings.TrimSpace(row[questionCol])
		}
		if pair.Question == "" {
			continue
		}
		if answerCol < len(row) {
			pair.Answer = row[answerCol]
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}
