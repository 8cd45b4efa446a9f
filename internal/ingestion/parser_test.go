package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const csvHeader = "MemberName,DocID,Owner,AssetDescription,Ticker,TransactionType,TransactionDate,NotificationDate,Amount,FilingStatus,Comment\n"

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return p
}

func TestReadCSV_TableDriven(t *testing.T) {
	validRow := `Jane Doe,D1,SP,Apple Inc. (AAPL),,P,01/15/2024,01/20/2024,"$1,001 - $15,000",New,` + "\n"

	cases := []struct {
		name          string
		content       string
		wantErr       bool
		wantRecords   int
		wantMalformed int
	}{
		{name: "ok single row", content: csvHeader + validRow, wantRecords: 1},
		{name: "header only", content: csvHeader, wantRecords: 0},
		{name: "bad header order", content: "DocID,MemberName\n", wantErr: true},
		{name: "bad header name", content: strings.Replace(csvHeader, "Owner", "Holder", 1), wantErr: true},
		{name: "empty input", content: "", wantErr: true},
		{name: "short row is malformed", content: csvHeader + validRow + "Jane Doe,D1,SP\n", wantRecords: 2, wantMalformed: 1},
		{name: "missing doc id is malformed", content: csvHeader + `Jane Doe,,SP,Acme,,P,01/15/2024,01/20/2024,"$1,001 - $15,000",,` + "\n", wantRecords: 1, wantMalformed: 1},
		{name: "header case and bom tolerated", content: "\ufeff" + strings.ToLower(csvHeader) + validRow, wantRecords: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recs, err := ReadCSV(context.Background(), "t.csv", strings.NewReader(tc.content), ',')
			if tc.wantErr {
				if !errors.Is(err, ErrSourceUnreadable) {
					t.Fatalf("want ErrSourceUnreadable, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(recs) != tc.wantRecords {
				t.Fatalf("want %d records, got %d", tc.wantRecords, len(recs))
			}
			malformed := 0
			for _, r := range recs {
				if r.Malformed() {
					malformed++
				}
			}
			if malformed != tc.wantMalformed {
				t.Fatalf("want %d malformed, got %d", tc.wantMalformed, malformed)
			}
		})
	}
}

func TestReadCSV_FieldsAndOrdinals(t *testing.T) {
	content := csvHeader +
		`Jane Doe,D1,SP,Apple Inc. (AAPL) [ST],,P,01/15/2024,01/20/2024,"$1,001 - $15,000",New,bought by advisor` + "\n" +
		`Jane Doe,D1,JT,Microsoft Corp,MSFT,S,01/16/2024,01/20/2024,"$15,001 - $50,000",New,` + "\n" +
		"Jane Doe,D1,SP\n" +
		`John Roe,D2,,Tesla Inc,TSLA,P,02/01/2024,02/03/2024,"$1,001 - $15,000",,` + "\n" +
		`Jane Doe,D1,C,Oracle Corp,ORCL,P,01/17/2024,01/20/2024,"$1,001 - $15,000",,` + "\n"

	recs, err := ReadCSV(context.Background(), "t.csv", strings.NewReader(content), ',')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(recs) != 5 {
		t.Fatalf("want 5 records, got %d", len(recs))
	}

	first := recs[0].Row
	if first.MemberName != "Jane Doe" || first.Owner != "SP" || first.AmountText != "$1,001 - $15,000" ||
		first.Comment != "bought by advisor" || first.SourceLine != 2 {
		t.Fatalf("unexpected first row: %+v", first)
	}

	wantOrd := []int{1, 2, 0, 1, 3}
	for i, r := range recs {
		if r.Row.Ordinal != wantOrd[i] {
			t.Fatalf("record %d: want ordinal %d, got %d", i, wantOrd[i], r.Row.Ordinal)
		}
	}
	if !recs[2].Malformed() || recs[2].Row.RawText != "Jane Doe,D1,SP" || recs[2].Row.SourceLine != 4 {
		t.Fatalf("malformed row lost its raw text: %+v", recs[2])
	}
}

func TestReadCSV_CustomDelimiter(t *testing.T) {
	content := strings.ReplaceAll(csvHeader, ",", ";") + "Jane Doe;D1;SP;Acme Corp;ACME;P;01/15/2024;01/20/2024;$1,001 - $15,000;New;\n"
	recs, err := ReadCSV(context.Background(), "t.csv", strings.NewReader(content), ';')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(recs) != 1 || recs[0].Malformed() || recs[0].Row.AmountText != "$1,001 - $15,000" {
		t.Fatalf("unexpected records: %+v", recs)
	}
}

func TestReadCSV_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ReadCSV(ctx, "t.csv", strings.NewReader(csvHeader+"a,b,c,d,e,f,g,h,i,j,k\n"), ',')
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestCSVSource_Load(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "ptr.csv", csvHeader+`Jane Doe,D1,SP,Acme,ACME,P,01/15/2024,01/20/2024,"$1,001 - $15,000",,`+"\n")

	src := NewCSVSource(path, 0)
	if src.Name() != "ptr.csv" {
		t.Fatalf("name: %q", src.Name())
	}
	recs, err := src.Load(context.Background())
	if err != nil || len(recs) != 1 {
		t.Fatalf("load: %v %d", err, len(recs))
	}

	_, err = NewCSVSource(filepath.Join(dir, "missing.csv"), ',').Load(context.Background())
	if !errors.Is(err, ErrSourceUnreadable) {
		t.Fatalf("missing file must be unreadable, got %v", err)
	}
}

func TestOpenSource_ByExtension(t *testing.T) {
	if _, ok := OpenSource("a/ptr.txt", ',').(*TextSource); !ok {
		t.Fatalf(".txt must open a text source")
	}
	if _, ok := OpenSource("a/ptr.TXT", ',').(*TextSource); !ok {
		t.Fatalf("extension match must ignore case")
	}
	if _, ok := OpenSource("a/ptr.csv", ',').(*CSVSource); !ok {
		t.Fatalf(".csv must open a delimited source")
	}
}
