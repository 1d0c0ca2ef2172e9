package main

import (
	"strings"
	"testing"

	"campaignmap/internal"
)

func TestImportLine(t *testing.T) {
	parked := internal.ImportRecord{
		Filename:  "unknown.csv",
		Status:    internal.ImportNeedsMapping,
		RowCount:  12,
		CreatedAt: "2024-05-01T10:00:00Z",
	}
	line := importLine(parked)
	for _, want := range []string{"needs_mapping", "unknown.csv", "crm=-", "template=-", "rows=12", "imported=0"} {
		if !strings.Contains(line, want) {
			t.Fatalf("line %q missing %q", line, want)
		}
	}

	id := "google_ads"
	done := internal.ImportRecord{Filename: "ads.csv", CRM: "Google Ads", TemplateID: &id, Status: internal.ImportCompleted, RowCount: 3, Imported: 2, Dropped: 1}
	line = importLine(done)
	for _, want := range []string{"completed", "crm=Google Ads", "template=google_ads", "imported=2", "dropped=1"} {
		if !strings.Contains(line, want) {
			t.Fatalf("line %q missing %q", line, want)
		}
	}
}

