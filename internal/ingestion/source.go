package ingestion

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/guttosm/capitolledger/internal/domain/models"
)

// ErrSourceUnreadable aborts a run: the source could not be read to the end, so
// nothing from it is committed.
var ErrSourceUnreadable = errors.New("source unreadable")

// Record is one entry produced by a source. Err is set for rows that could not be
// split into fields; Row then carries only what could be recovered.
type Record struct {
	Row models.RawDisclosureRow
	Err error
}

// Malformed reports whether the record could not be parsed into a row.
func (r Record) Malformed() bool { return r.Err != nil }

// Source yields every record of one input. Load reads the input to the end before
// returning, so a failing source never produces a partial batch.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]Record, error)
}

// OpenSource picks a source by file extension: ".txt" is page-extracted text, anything
// else is a delimited export.
func OpenSource(path string, comma rune) Source {
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		return NewTextSource(path)
	}
	return NewCSVSource(path, comma)
}

// ordinals numbers rows per document in encounter order, starting at 1.
type ordinals map[string]int

func (o ordinals) next(docID string) int {
	o[docID]++
	return o[docID]
}

func unreadable(name string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrSourceUnreadable, name, err)
}
