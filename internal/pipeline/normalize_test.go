package pipeline

import (
	"testing"
	"time"

	"campaignmap/internal"
)

func TestNormalizeZeroSent(t *testing.T) {
	mapping := internal.Mapping{
		internal.FieldCampaignName: "name",
		internal.FieldSent:         "sent",
		internal.FieldOpens:        "opens",
		internal.FieldClicks:       "clicks",
	}
	c := Normalize(internal.Row{"name": "A", "sent": "0", "opens": "10", "clicks": "5"}, mapping, "Other")
	if c.OpenRate != 0 || c.ClickRate != 0 {
		t.Fatalf("rates %v %v", c.OpenRate, c.ClickRate)
	}
	if !approx(c.ConversionRate, 0) {
		t.Fatalf("conversionRate %v", c.ConversionRate)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	c := Normalize(internal.Row{"Name": "  Welcome series  "}, internal.Mapping{internal.FieldCampaignName: "Name"}, "Edrone")
	if c.Name != "Welcome series" {
		t.Fatalf("name=%q", c.Name)
	}
	if c.EngagementType != "email" || c.Sent != 0 || c.RawDate != "" || !c.Date.IsZero() {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.Type != internal.CampaignAutomation {
		t.Fatalf("type=%s", c.Type)
	}
	if c.ID == "" || c.CRM != "Edrone" || c.Status != "completed" {
		t.Fatalf("unexpected record: %+v", c)
	}
}

func TestNormalizeParsesCells(t *testing.T) {
	mapping := internal.Mapping{
		internal.FieldCampaignName:   "TITULO",
		internal.FieldDate:           "DATA",
		internal.FieldSent:           "ENVIO",
		internal.FieldOpens:          "ABERTO",
		internal.FieldClicks:         "CLIQUE",
		internal.FieldConversions:    "PEDIDO",
		internal.FieldRevenue:        "RECEITA",
		internal.FieldEngagementType: "CAMPANHA",
	}
	row := internal.Row{
		"TITULO": "Black Friday", "DATA": "29/11/2024", "ENVIO": "1000", "ABERTO": "250",
		"CLIQUE": "n/a", "PEDIDO": "3", "RECEITA": "R$ 1.234,56", "CAMPANHA": "newsletter_subscription",
	}

	c := Normalize(row, mapping, "Edrone")
	if c.Sent != 1000 || c.OpenRate != 25 {
		t.Fatalf("sent=%v openRate=%v", c.Sent, c.OpenRate)
	}
	if c.Clicks != 0 || c.Revenue != 1234.56 {
		t.Fatalf("clicks=%v revenue=%v", c.Clicks, c.Revenue)
	}
	if !c.Date.Equal(time.Date(2024, 11, 29, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date=%v", c.Date)
	}
	if c.Type != internal.CampaignAutomation || c.EngagementType != "newsletter_subscription" {
		t.Fatalf("type=%s engagement=%s", c.Type, c.EngagementType)
	}
	if c.ConversionRate != 0 {
		t.Fatalf("conversionRate=%v", c.ConversionRate)
	}
}

func TestNormalizeRowsDropsNamelessRows(t *testing.T) {
	mapping := internal.Mapping{internal.FieldCampaignName: "name", internal.FieldSent: "sent"}
	rows := []internal.Row{
		{"name": "A", "sent": "10"},
		{"name": "   ", "sent": "20"},
		{"sent": "30"},
		{"name": "B", "sent": "40"},
	}
	got, dropped := NormalizeRows(rows, mapping, "Other")
	if len(got) != 2 || dropped != 2 {
		t.Fatalf("got %d dropped %d", len(got), dropped)
	}
	if got[0].Name != "A" || got[1].Name != "B" {
		t.Fatalf("names %q %q", got[0].Name, got[1].Name)
	}
}

func TestDetectCampaignType(t *testing.T) {
	cases := []struct {
		engagement string
		name       string
		want       internal.CampaignType
	}{
		{"newsletter_subscription", "Promo", internal.CampaignAutomation},
		{"newsletter", "Fluxo de boas vindas", internal.CampaignEmail},
		{"SMS", "Promo", internal.CampaignSMS},
		{"abandoned_cart", "Promo", internal.CampaignAutomation},
		{"", "Carrinho Abandonado #3", internal.CampaignAutomation},
		{"", "Black Friday", internal.CampaignEmail},
	}
	for _, tc := range cases {
		if got := DetectCampaignType(tc.engagement, tc.name); got != tc.want {
			t.Fatalf("%q/%q: got %s want %s", tc.engagement, tc.name, got, tc.want)
		}
	}
}

func TestDetectCRM(t *testing.T) {
	google := internal.Template{ID: "google_ads", DisplayName: "Google Ads"}
	cases := []struct {
		filename string
		headers  []string
		matched  *internal.Template
		want     string
	}{
		{"export_edrone_maio.csv", nil, nil, "Edrone"},
		{"RD Station - campanhas.xlsx", nil, nil, "RD Station"},
		{"rd_station.csv", nil, nil, "RD Station"},
		{"sendinblue.csv", nil, nil, "Sendinpulse"},
		{"Mailchimp.csv", nil, nil, "Mailchimp"},
		{"hubspot-emails.csv", nil, nil, "HubSpot"},
		{"report.csv", []string{"Campanha", "Edrone ID"}, nil, "Edrone"},
		{"report.csv", googleAdsHeaders, &google, "Google Ads"},
		{"report.csv", []string{"x"}, nil, "Other"},
	}
	for _, tc := range cases {
		if got := DetectCRM(tc.filename, tc.headers, tc.matched); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.filename, got, tc.want)
		}
	}
}
