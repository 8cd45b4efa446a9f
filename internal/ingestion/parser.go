package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/guttosm/capitolledger/internal/domain/models"
)

// expectedHeaders enforces strict column ordering for delimited disclosure exports.
// Matching ignores case, surrounding spaces and a UTF-8 byte order mark.
var expectedHeaders = []string{
	"MemberName",
	"DocID",
	"Owner",
	"AssetDescription",
	"Ticker",
	"TransactionType",
	"TransactionDate",
	"NotificationDate",
	"Amount",
	"FilingStatus",
	"Comment",
}

// CSVSource reads a delimited export with the fixed 11-column layout.
type CSVSource struct {
	path  string
	comma rune
}

// NewCSVSource builds a source for path. A zero comma means ','.
func NewCSVSource(path string, comma rune) *CSVSource {
	if comma == 0 {
		comma = ','
	}
	return &CSVSource{path: path, comma: comma}
}

func (s *CSVSource) Name() string { return filepath.Base(s.path) }

// Load opens the file and parses every record.
func (s *CSVSource) Load(ctx context.Context) ([]Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, unreadable(s.Name(), err)
	}
	defer func() { _ = f.Close() }()
	return ReadCSV(ctx, s.Name(), f, s.comma)
}

// ReadCSV parses a delimited export. It fails on:
//   - header not matching expected order/length
//   - unrecoverable I/O errors
//
// It tolerates:
//   - rows with the wrong column count or broken quoting (they become malformed records)
//   - rows without a doc id (malformed, since they cannot be deduplicated)
func ReadCSV(ctx context.Context, name string, in io.Reader, comma rune) ([]Record, error) {
	r := csv.NewReader(in)
	r.Comma = comma
	r.LazyQuotes = true
	r.FieldsPerRecord = -1 // checked per row
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, unreadable(name, fmt.Errorf("read header: %w", err))
	}
	if err := checkHeader(header); err != nil {
		return nil, unreadable(name, err)
	}

	var (
		out []Record
		ord = ordinals{}
	)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rec, err := r.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				out = append(out, Record{
					Row: models.RawDisclosureRow{SourceLine: perr.Line, RawText: strings.Join(rec, string(comma))},
					Err: fmt.Errorf("line %d: %w", perr.Line, perr.Err),
				})
				continue
			}
			return nil, unreadable(name, fmt.Errorf("read after %d records: %w", len(out), err))
		}
		line, _ := r.FieldPos(0)

		if len(rec) != len(expectedHeaders) {
			row := models.RawDisclosureRow{SourceLine: line, RawText: strings.Join(rec, string(comma))}
			if len(rec) > 1 {
				row.DocID = strings.TrimSpace(rec[1])
			}
			out = append(out, Record{
				Row: row,
				Err: fmt.Errorf("line %d: expected %d columns, got %d", line, len(expectedHeaders), len(rec)),
			})
			continue
		}

		row := recordToRow(rec)
		row.SourceLine = line
		if row.DocID == "" {
			row.RawText = strings.Join(rec, string(comma))
			out = append(out, Record{Row: row, Err: fmt.Errorf("line %d: missing doc id", line)})
			continue
		}
		row.Ordinal = ord.next(row.DocID)
		out = append(out, Record{Row: row})
	}
	return out, nil
}

func checkHeader(header []string) error {
	if len(header) != len(expectedHeaders) {
		return fmt.Errorf("invalid header length: expected %d, got %d", len(expectedHeaders), len(header))
	}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if !strings.EqualFold(h, expectedHeaders[i]) {
			return fmt.Errorf("invalid header at col %d: expected %q, got %q", i+1, expectedHeaders[i], h)
		}
	}
	return nil
}

// recordToRow maps one 11-column record to a raw row. Values are kept verbatim apart
// from trimming; normalization happens later.
//
//	 0 MemberName        → MemberName
//	 1 DocID             → DocID
//	 2 Owner             → Owner
//	 3 AssetDescription  → AssetDescription
//	 4 Ticker            → Ticker
//	 5 TransactionType   → TransactionType
//	 6 TransactionDate   → TransactionDate
//	 7 NotificationDate  → NotificationDate
//	 8 Amount            → AmountText
//	 9 FilingStatus      → FilingStatus
//	10 Comment           → Comment
func recordToRow(rec []string) models.RawDisclosureRow {
	return models.RawDisclosureRow{
		MemberName:       strings.TrimSpace(rec[0]),
		DocID:            strings.TrimSpace(rec[1]),
		Owner:            strings.TrimSpace(rec[2]),
		AssetDescription: strings.TrimSpace(rec[3]),
		Ticker:           strings.TrimSpace(rec[4]),
		TransactionType:  strings.TrimSpace(rec[5]),
		TransactionDate:  strings.TrimSpace(rec[6]),
		NotificationDate: strings.TrimSpace(rec[7]),
		AmountText:       strings.TrimSpace(rec[8]),
		FilingStatus:     strings.TrimSpace(rec[9]),
		Comment:          strings.TrimSpace(rec[10]),
	}
}
