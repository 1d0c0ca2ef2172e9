package pipeline

import (
	"errors"
	"testing"
)

func TestParseCSVSemicolonWithBOM(t *testing.T) {
	content := "\xef\xbb\xbfNome;Data;Enviados\nPromo;01/05/2024;\"1.234\"\n;;\nLaunch;02/05/2024;10\n"
	table, err := ParseTable("edrone.csv", []byte(content))
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Headers) != 3 || table.Headers[0] != "Nome" {
		t.Fatalf("headers=%v", table.Headers)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("len=%d", len(table.Rows))
	}
	if table.Rows[0]["Enviados"] != "1.234" {
		t.Fatalf("row=%v", table.Rows[0])
	}
}

func TestParseCSVSkipsTitleRows(t *testing.T) {
	content := "Relatório de campanhas\n\nCampaign,Day,Clicks\nA,2024-05-01,10\n"
	table, err := ParseTable("report.csv", []byte(content))
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Headers) != 3 || table.Headers[1] != "Day" {
		t.Fatalf("headers=%v", table.Headers)
	}
	if len(table.Rows) != 1 || table.Rows[0]["Clicks"] != "10" {
		t.Fatalf("rows=%v", table.Rows)
	}
}

func TestParseCSVHeaderCleanup(t *testing.T) {
	content := "Name,Clicks,Clicks,,Notes,,\nA,1,2,x,y,,\n"
	table, err := ParseTable("report.csv", []byte(content))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Name", "Clicks", "Clicks_1", "Column 4", "Notes"}
	if len(table.Headers) != len(want) {
		t.Fatalf("headers=%v", table.Headers)
	}
	for i := range want {
		if table.Headers[i] != want[i] {
			t.Fatalf("headers=%v", table.Headers)
		}
	}
	row := table.Rows[0]
	if row["Clicks"] != "1" || row["Clicks_1"] != "2" || row["Column 4"] != "x" {
		t.Fatalf("row=%v", row)
	}
}

func TestParseTSV(t *testing.T) {
	table, err := ParseTable("export.tsv", []byte("Campaign\tSent\nA\t10\n"))
	if err != nil {
		t.Fatal(err)
	}
	if table.Rows[0]["Sent"] != "10" {
		t.Fatalf("rows=%v", table.Rows)
	}
}

func TestParseTableErrors(t *testing.T) {
	_, err := ParseTable("empty.csv", nil)
	if !errors.Is(err, ErrNoHeaders) {
		t.Fatalf("empty: err=%v", err)
	}

	_, err = ParseTable("report.pdf", []byte("%PDF-1.4"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("pdf: err=%v", err)
	}
	var perr *ParseError
	if !errors.As(err, &perr) || perr.File != "report.pdf" {
		t.Fatalf("pdf: err=%v", err)
	}
}

func TestTableSample(t *testing.T) {
	table, err := ParseTable("a.csv", []byte("Name\nA\nB\nC\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Sample(2)) != 2 || len(table.Sample(0)) != 3 || len(table.Sample(10)) != 3 {
		t.Fatalf("unexpected sample sizes")
	}
}

func TestParseCSVHeaderWithBlankCell(t *testing.T) {
	content := "Campaign,Day,,Sent\nPromo,2024-05-01,x,100\nLaunch,2024-05-02,y,200\n"
	table, err := ParseTable("report.csv", []byte(content))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Campaign", "Day", "Column 3", "Sent"}
	if len(table.Headers) != len(want) {
		t.Fatalf("headers=%v", table.Headers)
	}
	for i := range want {
		if table.Headers[i] != want[i] {
			t.Fatalf("headers=%v", table.Headers)
		}
	}
	if len(table.Rows) != 2 || table.Rows[0]["Campaign"] != "Promo" || table.Rows[1]["Sent"] != "200" {
		t.Fatalf("rows=%v", table.Rows)
	}
}

func TestParseCSVSuffixedHeaderCollision(t *testing.T) {
	table, err := ParseTable("report.csv", []byte("A,A,A_1\n1,2,3\n"))
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]bool{}
	for _, h := range table.Headers {
		if seen[h] {
			t.Fatalf("duplicate header %q in %v", h, table.Headers)
		}
		seen[h] = true
	}
	row := table.Rows[0]
	if len(row) != 3 || row["A"] != "1" || row["A_1"] != "2" || row["A_1_1"] != "3" {
		t.Fatalf("row=%v", row)
	}
}
