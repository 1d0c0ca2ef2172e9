package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"campaignmap/internal"
	"campaignmap/internal/storage"
)

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSmokeImportGoogleAdsCSV(t *testing.T) {
	db := openTestDB(t)
	svc := NewImportService(db, testConfig(), builtinRegistry(t))

	content := "Campaign,Day,Impressions,Clicks,Conversions,Cost\nSale,2024-05-01,1000,50,5,\"200,50\"\n"
	res, err := svc.ImportFile(context.Background(), "ads.csv", []byte(content), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != internal.ImportCompleted || res.TemplateID != "google_ads" || res.CRM != "Google Ads" || res.Imported != 1 {
		t.Fatalf("res=%+v", res)
	}

	campaigns, err := db.ListCampaigns(internal.CampaignFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(campaigns) != 1 {
		t.Fatalf("len=%d", len(campaigns))
	}
	c := campaigns[0]
	if c.Name != "Sale" || c.ImportID != res.ImportID || c.Type != internal.CampaignEmail {
		t.Fatalf("campaign=%+v", c)
	}
	if c.Sent != 1000 || c.Clicks != 50 || c.Conversions != 5 || !approx(c.Revenue, 200.5) {
		t.Fatalf("campaign=%+v", c)
	}
	if !approx(c.ClickRate, 5) || !approx(c.ConversionRate, 10) {
		t.Fatalf("rates click=%v conversion=%v", c.ClickRate, c.ConversionRate)
	}
	if !c.Date.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date=%v", c.Date)
	}

	imports, err := db.ListImports(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(imports) != 1 || imports[0].Status != internal.ImportCompleted || imports[0].Mapping[internal.FieldSent] != "Impressions" {
		t.Fatalf("imports=%+v", imports)
	}
}

func TestSmokeUnknownFileIsParked(t *testing.T) {
	db := openTestDB(t)
	svc := NewImportService(db, testConfig(), builtinRegistry(t))

	content := "Nome,Quando,Qtd\nA,2024-05-01,10\n"
	res, err := svc.ImportFile(context.Background(), "mystery.csv", []byte(content), AutoOnlyConfirmer{})
	if !errors.Is(err, ErrImportCancelled) {
		t.Fatalf("err=%v", err)
	}
	if res.Status != internal.ImportNeedsMapping {
		t.Fatalf("status=%s", res.Status)
	}

	campaigns, err := db.ListCampaigns(internal.CampaignFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(campaigns) != 0 {
		t.Fatalf("len=%d", len(campaigns))
	}
	imports, err := db.ListImports(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(imports) != 1 || imports[0].Status != internal.ImportNeedsMapping {
		t.Fatalf("imports=%+v", imports)
	}

	res, err = svc.ImportFile(context.Background(), "mystery.csv", []byte(content), StaticConfirmer{Mapping: internal.Mapping{
		internal.FieldCampaignName: "Nome",
		internal.FieldDate:         "Quando",
		internal.FieldSent:         "Qtd",
	}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 1 || res.CRM != CRMOther {
		t.Fatalf("res=%+v", res)
	}
}

func TestSmokeImportPathsContinuesAfterFailure(t *testing.T) {
	db := openTestDB(t)
	svc := NewImportService(db, testConfig(), builtinRegistry(t))

	dir := t.TempDir()
	good := filepath.Join(dir, "ads.csv")
	bad := filepath.Join(dir, "broken.xlsx")
	if err := os.WriteFile(good, []byte("Campaign,Day,Impressions,Clicks,Conversions,Cost\nSale,2024-05-01,1000,50,5,10\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	results := svc.ImportPaths(context.Background(), []string{bad, filepath.Join(dir, "missing.csv"), good}, nil)
	if len(results) != 3 {
		t.Fatalf("len=%d", len(results))
	}
	if results[0].Status != internal.ImportFailed || results[1].Status != internal.ImportFailed {
		t.Fatalf("results=%+v", results[:2])
	}
	if results[2].Status != internal.ImportCompleted || results[2].Imported != 1 {
		t.Fatalf("result=%+v", results[2])
	}
}

func TestSmokeReportEmail(t *testing.T) {
	db := openTestDB(t)
	svc := NewImportService(db, testConfig(), builtinRegistry(t))
	proc := NewReportProcessingService(db, svc)

	rawBlob, err := os.ReadFile(filepath.Join("testdata", "weekly_report.eml"))
	if err != nil {
		t.Fatal(err)
	}
	rawPath := filepath.Join(t.TempDir(), "fixture.eml")
	if err := os.WriteFile(rawPath, rawBlob, 0o644); err != nil {
		t.Fatal(err)
	}

	email, err := db.UpsertReportEmail("imap", "<weekly-1@ads.example.com>", "Weekly campaign report", "reports@ads.example.com", "2024-05-01T10:00:00Z", "hash", rawPath, EmailFetched)
	if err != nil {
		t.Fatal(err)
	}

	emails, imported, err := proc.ProcessPending(context.Background(), 10, "")
	if err != nil {
		t.Fatal(err)
	}
	if emails != 1 || imported != 2 {
		t.Fatalf("emails=%d imported=%d", emails, imported)
	}

	row, err := db.GetReportEmailByID(email.ID)
	if err != nil {
		t.Fatal(err)
	}
	if row.Status != EmailProcessed {
		t.Fatalf("status=%s", row.Status)
	}

	campaigns, err := db.ListCampaigns(internal.CampaignFilter{CRM: "Google Ads"})
	if err != nil {
		t.Fatal(err)
	}
	if len(campaigns) != 2 || campaigns[0].Name != "Launch" {
		t.Fatalf("campaigns=%+v", campaigns)
	}

	out := filepath.Join(t.TempDir(), "campaigns.csv")
	if err := ExportCampaignsToCSV(campaigns, out); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatal(err)
	}
}

func TestSmokeUnreadableEmailDoesNotBlockQueue(t *testing.T) {
	db := openTestDB(t)
	svc := NewImportService(db, testConfig(), builtinRegistry(t))
	proc := NewReportProcessingService(db, svc)

	rawBlob, err := os.ReadFile(filepath.Join("testdata", "weekly_report.eml"))
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	rawPath := filepath.Join(dir, "fixture.eml")
	if err := os.WriteFile(rawPath, rawBlob, 0o644); err != nil {
		t.Fatal(err)
	}

	lost, err := db.UpsertReportEmail("imap", "<lost@ads.example.com>", "Weekly campaign report", "reports@ads.example.com", "2024-04-24T10:00:00Z", "hash-lost", filepath.Join(dir, "missing.eml"), EmailFetched)
	if err != nil {
		t.Fatal(err)
	}
	good, err := db.UpsertReportEmail("imap", "<weekly-1@ads.example.com>", "Weekly campaign report", "reports@ads.example.com", "2024-05-01T10:00:00Z", "hash", rawPath, EmailFetched)
	if err != nil {
		t.Fatal(err)
	}

	emails, imported, err := proc.ProcessPending(context.Background(), 10, "")
	if err != nil {
		t.Fatal(err)
	}
	if emails != 1 || imported != 2 {
		t.Fatalf("emails=%d imported=%d", emails, imported)
	}

	row, err := db.GetReportEmailByID(lost.ID)
	if err != nil {
		t.Fatal(err)
	}
	if row.Status != EmailFailed {
		t.Fatalf("lost status=%s", row.Status)
	}
	row, err = db.GetReportEmailByID(good.ID)
	if err != nil {
		t.Fatal(err)
	}
	if row.Status != EmailProcessed {
		t.Fatalf("good status=%s", row.Status)
	}

	pending, err := db.ListReportEmailsByStatus(EmailFetched, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending=%v", pending)
	}
}
