package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseHTMLTablePrefersCampaignTable(t *testing.T) {
	html := `<html><body>
<table><tr><td>Logo</td></tr><tr><td>Olá</td></tr></table>
<table>
  <tr><th>Campanha</th><th>Envios</th><th>Cliques</th></tr>
  <tr><td>Promo  de
    maio</td><td>1.000</td><td>50</td></tr>
</table>
</body></html>`
	table, err := ParseTable("report.html", []byte(html))
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Headers) != 3 || table.Headers[0] != "Campanha" {
		t.Fatalf("headers=%v", table.Headers)
	}
	if len(table.Rows) != 1 || table.Rows[0]["Campanha"] != "Promo de maio" {
		t.Fatalf("rows=%v", table.Rows)
	}
}

func TestParseHTMLTableFallback(t *testing.T) {
	html := `<table><tr><th>Canal</th><th>Envios</th></tr><tr><td>Email</td><td>10</td></tr></table>`
	table, err := ParseTable("report.htm", []byte(html))
	if err != nil {
		t.Fatal(err)
	}
	if table.Headers[0] != "Canal" || table.Rows[0]["Envios"] != "10" {
		t.Fatalf("table=%+v", table)
	}

	_, err = ParseTable("report.html", []byte("<p>nothing here</p>"))
	if !errors.Is(err, ErrNoHeaders) {
		t.Fatalf("err=%v", err)
	}
}

func TestParseXLSDisguisedAsHTML(t *testing.T) {
	html := `<table><tr><th>Campaign</th><th>Sent</th></tr><tr><td>A</td><td>5</td></tr></table>`
	table, err := ParseTable("legacy.xls", []byte(html))
	if err != nil {
		t.Fatal(err)
	}
	if table.Rows[0]["Sent"] != "5" {
		t.Fatalf("rows=%v", table.Rows)
	}
}

func TestReadReportEmailAttachment(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("testdata", "weekly_report.eml"))
	if err != nil {
		t.Fatal(err)
	}
	report, err := ReadReportEmail(raw)
	if err != nil {
		t.Fatal(err)
	}
	if report.Subject != "Weekly campaign report" {
		t.Fatalf("subject=%q", report.Subject)
	}
	if len(report.Attachments) != 1 || report.Attachments[0].Name != "google_ads_weekly.csv" {
		t.Fatalf("attachments=%v", report.AttachmentNames)
	}
	table, err := ParseTable(report.Attachments[0].Name, report.Attachments[0].Content)
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("len=%d", len(table.Rows))
	}
}

func TestReadReportEmailHTMLBody(t *testing.T) {
	raw := "From: reports@example.com\r\n" +
		"Subject: Relatório semanal\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<html><body><table><tr><th>Campaign</th><th>Clicks</th></tr><tr><td>A</td><td>1</td></tr></table></body></html>\r\n"
	report, err := ReadReportEmail([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Attachments) != 1 || report.Attachments[0].Name != "body.html" {
		t.Fatalf("attachments=%+v", report.Attachments)
	}
}
