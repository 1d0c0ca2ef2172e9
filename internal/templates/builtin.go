package templates

import "campaignmap/internal"

// Builtin returns fresh copies of the platform templates shipped with the binary,
// in the order the matcher walks them.
func Builtin() []internal.Template {
	return []internal.Template{
		{
			ID:          "edrone",
			DisplayName: "Edrone",
			FieldMapping: internal.Mapping{
				internal.FieldCampaignName:   "TITULO",
				internal.FieldDate:           "DATA",
				internal.FieldSent:           "ENVIO",
				internal.FieldOpens:          "ABERTO",
				internal.FieldClicks:         "CLIQUE",
				internal.FieldConversions:    "PEDIDO",
				internal.FieldRevenue:        "RECEITA",
				internal.FieldEngagementType: "CAMPANHA",
			},
			FieldLabels: map[internal.Field]string{
				internal.FieldSent:        "Enviados",
				internal.FieldOpens:       "Aberturas",
				internal.FieldClicks:      "Cliques",
				internal.FieldConversions: "Pedidos",
				internal.FieldRevenue:     "Receita",
			},
		},
		{
			ID:          "rd_station",
			DisplayName: "RD Station",
			FieldMapping: internal.Mapping{
				internal.FieldCampaignName: "nome",
				internal.FieldDate:         "data",
				internal.FieldSent:         "emails_enviados",
				internal.FieldOpens:        "aberturas",
				internal.FieldClicks:       "cliques",
				internal.FieldConversions:  "conversoes",
				internal.FieldRevenue:      "receita",
			},
			FieldLabels: map[internal.Field]string{
				internal.FieldSent:        "Emails Enviados",
				internal.FieldOpens:       "Aberturas",
				internal.FieldClicks:      "Cliques",
				internal.FieldConversions: "Conversões",
				internal.FieldRevenue:     "Receita",
			},
		},
		{
			ID:          "google_ads",
			DisplayName: "Google Ads",
			FieldMapping: internal.Mapping{
				internal.FieldCampaignName: "Campaign",
				internal.FieldDate:         "Day",
				internal.FieldSent:         "Impressions",
				internal.FieldClicks:       "Clicks",
				internal.FieldConversions:  "Conversions",
				internal.FieldRevenue:      "Cost",
			},
			FieldLabels: map[internal.Field]string{
				internal.FieldSent:        "Impressões",
				internal.FieldOpens:       "Visualizações",
				internal.FieldClicks:      "Cliques",
				internal.FieldConversions: "Conversões",
				internal.FieldRevenue:     "Custo",
			},
		},
		{
			ID:          "facebook_ads",
			DisplayName: "Facebook Ads",
			FieldMapping: internal.Mapping{
				internal.FieldCampaignName: "Campaign name",
				internal.FieldDate:         "Reporting starts",
				internal.FieldSent:         "Reach",
				internal.FieldOpens:        "Post engagement",
				internal.FieldClicks:       "Link clicks",
				internal.FieldConversions:  "Purchases",
				internal.FieldRevenue:      "Amount spent",
			},
			FieldLabels: map[internal.Field]string{
				internal.FieldSent:        "Alcance",
				internal.FieldOpens:       "Engajamento",
				internal.FieldClicks:      "Cliques no Link",
				internal.FieldConversions: "Compras",
				internal.FieldRevenue:     "Valor Gasto",
			},
		},
		{
			ID:          "mailchimp",
			DisplayName: "Mailchimp",
			FieldMapping: internal.Mapping{
				internal.FieldCampaignName: "Campaign Title",
				internal.FieldDate:         "Send Time",
				internal.FieldSent:         "Emails Sent",
				internal.FieldOpens:        "Unique Opens",
				internal.FieldClicks:       "Unique Clicks",
				internal.FieldConversions:  "E-Commerce Orders",
				internal.FieldRevenue:      "E-Commerce Revenue",
			},
			FieldLabels: map[internal.Field]string{
				internal.FieldSent:        "Emails Enviados",
				internal.FieldOpens:       "Aberturas Únicas",
				internal.FieldClicks:      "Cliques Únicos",
				internal.FieldConversions: "Pedidos",
				internal.FieldRevenue:     "Receita",
			},
		},
	}
}
