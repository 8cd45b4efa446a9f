package ingestion

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

const sampleText = `Clerk of the House of Representatives
Filing ID #20012345
Name: Hon. Jane Doe
ID Owner Asset Transaction Type Date Notification Date Amount
SP Apple Inc. - Common Stock (AAPL) [ST] P 01/15/2024 01/20/2024 $1,001 - $15,000
F S: New
D: Purchased by advisor
JT Microsoft Corporation - Common Stock S (partial) 02/01/2024 02/03/2024 $15,001 -
$50,000
F S: New
C Kimberly-Clark Corporation
- Common Stock (KMB) [ST]
P 03/04/2024 03/05/2024 $1,001 - $15,000
Tesla, Inc. S 03/10/2024 03/11/2024 $50,001 - $100,000
Filing ID #20012399
Name: Hon. John Roe
DC Oracle Corp E 04/01/2024 04/02/2024 $1,001 - $15,000
`

func TestReadText_Records(t *testing.T) {
	recs, err := ReadText(context.Background(), "ptr.txt", strings.NewReader(sampleText))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(recs) != 5 {
		for _, r := range recs {
			t.Logf("%+v", r)
		}
		t.Fatalf("want 5 records, got %d", len(recs))
	}
	for i, r := range recs {
		if r.Malformed() {
			t.Fatalf("record %d malformed: %v", i, r.Err)
		}
	}

	aapl := recs[0].Row
	if aapl.DocID != "20012345" || aapl.MemberName != "Hon. Jane Doe" || aapl.Owner != "SP" ||
		aapl.AssetDescription != "Apple Inc. - Common Stock (AAPL) [ST]" || aapl.TransactionType != "P" ||
		aapl.TransactionDate != "01/15/2024" || aapl.NotificationDate != "01/20/2024" ||
		aapl.AmountText != "$1,001 - $15,000" || aapl.FilingStatus != "New" ||
		aapl.Comment != "Purchased by advisor" || aapl.Ordinal != 1 || aapl.SourceLine != 5 {
		t.Fatalf("unexpected first row: %+v", aapl)
	}

	msft := recs[1].Row
	if msft.TransactionType != "S (partial)" || msft.AmountText != "$15,001 - $50,000" || msft.Owner != "JT" {
		t.Fatalf("amount overflow not joined: %+v", msft)
	}

	kmb := recs[2].Row
	if kmb.AssetDescription != "Kimberly-Clark Corporation - Common Stock (KMB) [ST]" || kmb.TransactionType != "P" || kmb.Owner != "C" {
		t.Fatalf("wrapped description not joined: %+v", kmb)
	}

	tsla := recs[3].Row
	if tsla.Owner != "" || tsla.AssetDescription != "Tesla, Inc." || tsla.Ordinal != 4 {
		t.Fatalf("record without owner code: %+v", tsla)
	}

	orcl := recs[4].Row
	if orcl.DocID != "20012399" || orcl.MemberName != "Hon. John Roe" || orcl.Ordinal != 1 || orcl.TransactionType != "E" {
		t.Fatalf("second filing: %+v", orcl)
	}
}

func TestReadText_MalformedRecords(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "never completed",
			content: "Filing ID #1\nName: Jane Doe\nSP Apple Inc. (AAPL) with no dates\n",
			wantErr: "without transaction type",
		},
		{
			name:    "no filing id",
			content: "Name: Jane Doe\nSP Apple Inc. (AAPL) P 01/15/2024 01/20/2024 $1,001 - $15,000\n",
			wantErr: "before any filing id",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recs, err := ReadText(context.Background(), "ptr.txt", strings.NewReader(tc.content))
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if len(recs) != 1 || !recs[0].Malformed() {
				t.Fatalf("want one malformed record, got %+v", recs)
			}
			if !strings.Contains(recs[0].Err.Error(), tc.wantErr) || recs[0].Row.RawText == "" {
				t.Fatalf("unexpected record: %+v", recs[0])
			}
			if recs[0].Row.Ordinal != 0 {
				t.Fatalf("malformed records must not take an ordinal")
			}
		})
	}
}

func TestTextSource_Load(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "ptr.txt", sampleText)

	recs, err := NewTextSource(path).Load(context.Background())
	if err != nil || len(recs) != 5 {
		t.Fatalf("load: %v %d", err, len(recs))
	}

	_, err = NewTextSource(filepath.Join(dir, "nope.txt")).Load(context.Background())
	if !errors.Is(err, ErrSourceUnreadable) {
		t.Fatalf("want ErrSourceUnreadable, got %v", err)
	}
}
