package ingestion

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/guttosm/capitolledger/internal/domain/models"
)

// Page-extracted periodic transaction reports look like:
//
//	Filing ID #20012345
//	Name: Hon. Jane Doe
//	SP Apple Inc. - Common Stock (AAPL) [ST] P 01/15/2024 01/20/2024 $1,001 - $15,000
//	F S: New
//	D: Purchased by advisor
//	JT Microsoft Corporation - Common Stock S (partial) 02/01/2024 02/03/2024 $15,001 -
//	$50,000
//
// A line opening with an owner code starts a record; lines after it carry the
// filing status (F S:), a comment (D:), amount overflow or description overflow.
var (
	filingIDLine = regexp.MustCompile(`(?i)^filing\s+id\s*#?\s*([A-Za-z0-9-]+)`)
	nameLine     = regexp.MustCompile(`(?i)^name\s*:\s*(.+)$`)
	statusLine   = regexp.MustCompile(`(?i)^f\s*s\s*:\s*(.*)$`)
	commentLine  = regexp.MustCompile(`(?i)^(?:d|description|c\s*o)\s*:\s*(.*)$`)
	ownerPrefix  = regexp.MustCompile(`^(SP|DC|JT|C)\s+(.+)$`)
	tableHeader  = regexp.MustCompile(`(?i)^(id\s+)?owner\s+asset\b`)
	amountStart  = regexp.MustCompile(`(?i)^(\$|over\b)`)

	// description, transaction type, transaction date, notification date, amount
	recordBody = regexp.MustCompile(
		`^(.*?)\s+(S \((?:partial|full)\)|P|S|E)\s+(\d{1,2}/\d{1,2}/\d{4})\s*(\d{1,2}/\d{1,2}/\d{4})\s*(.*)$`)
)

// TextSource tokenizes page-extracted disclosure text into rows.
type TextSource struct {
	path string
}

func NewTextSource(path string) *TextSource {
	return &TextSource{path: path}
}

func (s *TextSource) Name() string { return filepath.Base(s.path) }

func (s *TextSource) Load(ctx context.Context) ([]Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, unreadable(s.Name(), err)
	}
	defer func() { _ = f.Close() }()
	return ReadText(ctx, s.Name(), f)
}

// pendingRecord is a record whose continuation lines may still arrive.
type pendingRecord struct {
	row      models.RawDisclosureRow
	text     string // accumulated record text until the body pattern matches
	complete bool
}

type textParser struct {
	member string
	docID  string
	ord    ordinals
	cur    *pendingRecord
	out    []Record
}

// ReadText tokenizes page-extracted text. Only I/O errors fail; lines that never
// form a complete record become malformed records.
func ReadText(ctx context.Context, name string, in io.Reader) ([]Record, error) {
	p := &textParser{ord: ordinals{}}
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo%512 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		p.line(lineNo, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, unreadable(name, fmt.Errorf("line %d: %w", lineNo, err))
	}
	p.flush()
	return p.out, nil
}

func (p *textParser) line(n int, s string) {
	if s == "" || tableHeader.MatchString(s) {
		return
	}
	if m := filingIDLine.FindStringSubmatch(s); m != nil {
		p.flush()
		p.docID = m[1]
		return
	}
	if m := nameLine.FindStringSubmatch(s); m != nil {
		p.flush()
		p.member = strings.TrimSpace(m[1])
		return
	}
	if p.cur != nil {
		if m := statusLine.FindStringSubmatch(s); m != nil {
			p.cur.row.FilingStatus = strings.TrimSpace(m[1])
			return
		}
		if m := commentLine.FindStringSubmatch(s); m != nil {
			p.cur.row.Comment = joinText(p.cur.row.Comment, m[1])
			return
		}
	}
	if m := ownerPrefix.FindStringSubmatch(s); m != nil {
		p.start(n, m[1], m[2])
		return
	}
	if recordBody.MatchString(s) && (p.cur == nil || p.cur.complete) {
		// no owner code: the filer's own holding
		p.start(n, "", s)
		return
	}
	if p.cur == nil {
		return
	}
	p.continuation(s)
}

func (p *textParser) start(n int, owner, body string) {
	p.flush()
	p.cur = &pendingRecord{
		row: models.RawDisclosureRow{
			MemberName: p.member,
			DocID:      p.docID,
			Owner:      owner,
			SourceLine: n,
		},
		text: body,
	}
	p.tryComplete()
}

func (p *textParser) continuation(s string) {
	c := p.cur
	if !c.complete {
		c.text = joinText(c.text, s)
		p.tryComplete()
		return
	}
	amt := strings.TrimSpace(c.row.AmountText)
	if amountStart.MatchString(s) && (amt == "" || strings.HasSuffix(amt, "-")) {
		c.row.AmountText = joinText(amt, s)
		return
	}
	c.row.AssetDescription = joinText(c.row.AssetDescription, s)
}

func (p *textParser) tryComplete() {
	c := p.cur
	m := recordBody.FindStringSubmatch(c.text)
	if m == nil {
		return
	}
	c.row.AssetDescription = strings.TrimSpace(m[1])
	c.row.TransactionType = m[2]
	c.row.TransactionDate = m[3]
	c.row.NotificationDate = m[4]
	c.row.AmountText = strings.TrimSpace(m[5])
	c.complete = true
}

func (p *textParser) flush() {
	c := p.cur
	p.cur = nil
	if c == nil {
		return
	}
	switch {
	case !c.complete:
		c.row.RawText = c.text
		p.out = append(p.out, Record{
			Row: c.row,
			Err: fmt.Errorf("line %d: record without transaction type and dates", c.row.SourceLine),
		})
	case c.row.DocID == "":
		c.row.RawText = c.text
		p.out = append(p.out, Record{
			Row: c.row,
			Err: fmt.Errorf("line %d: record before any filing id", c.row.SourceLine),
		})
	default:
		c.row.Ordinal = p.ord.next(c.row.DocID)
		p.out = append(p.out, Record{Row: c.row})
	}
}

func joinText(a, b string) string {
	b = strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}
