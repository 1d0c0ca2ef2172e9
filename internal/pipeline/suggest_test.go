package pipeline

import (
	"testing"

	"campaignmap/internal"
)

func TestSuggestMapping(t *testing.T) {
	headers := []string{"Nome da Campanha", "Data", "Emails Enviados", "Aberturas", "Cliques", "Receita"}
	got := SuggestMapping(headers)

	want := internal.Mapping{
		internal.FieldCampaignName: "Nome da Campanha",
		internal.FieldDate:         "Data",
		internal.FieldSent:         "Emails Enviados",
		internal.FieldOpens:        "Aberturas",
		internal.FieldClicks:       "Cliques",
		internal.FieldRevenue:      "Receita",
	}
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestSuggestMappingFoldsAccents(t *testing.T) {
	got := SuggestMapping([]string{"Título", "Conversões"})
	if got[internal.FieldCampaignName] != "Título" || got[internal.FieldConversions] != "Conversões" {
		t.Fatalf("got %v", got)
	}
}

func TestSuggestMappingFirstHeaderWins(t *testing.T) {
	got := SuggestMapping([]string{"Clicks (all)", "Unique clicks"})
	if got[internal.FieldClicks] != "Clicks (all)" {
		t.Fatalf("got %q", got[internal.FieldClicks])
	}
}

func TestConflicts(t *testing.T) {
	got := SuggestMapping([]string{"Campaign Engagement"})
	conflicts := Conflicts(got)
	fields := conflicts["Campaign Engagement"]
	if len(fields) != 2 || fields[0] != internal.FieldCampaignName || fields[1] != internal.FieldOpens {
		t.Fatalf("got %v", conflicts)
	}
	if hs := ConflictHeaders(conflicts); len(hs) != 1 || hs[0] != "Campaign Engagement" {
		t.Fatalf("headers %v", hs)
	}
}
