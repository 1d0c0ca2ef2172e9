package pipeline

import (
	"sort"
	"strings"

	"campaignmap/internal"
	"campaignmap/internal/util"
)

var fieldKeywords = map[internal.Field][]string{
	internal.FieldCampaignName:   {"campaign", "campanha", "nome", "name", "titulo", "title"},
	internal.FieldDate:           {"date", "data", "day", "dia", "created", "send time", "reporting starts"},
	internal.FieldSent:           {"sent", "enviados", "envio", "impressions", "impressoes", "reach", "alcance", "emails sent"},
	internal.FieldOpens:          {"opens", "aberto", "aberturas", "unique opens", "engagement", "engajamento"},
	internal.FieldClicks:         {"clicks", "clique", "cliques", "unique clicks", "link clicks"},
	internal.FieldConversions:    {"conversions", "conversoes", "pedido", "orders", "purchases", "compras"},
	internal.FieldRevenue:        {"revenue", "receita", "valor", "value", "cost", "custo", "amount spent", "e-commerce revenue"},
	internal.FieldEngagementType: {"engagement type", "tipo de engajamento", "tipo", "type", "jornada"},
}

// SuggestMapping proposes a header for every field independently: the first
// header, in upload order, containing any of the field's keywords. One header
// may end up suggested for several fields.
func SuggestMapping(headers []string) internal.Mapping {
	folded := foldHeaders(headers)
	out := internal.Mapping{}
	for _, field := range internal.AllFields {
		keywords := fieldKeywords[field]
	headerLoop:
		for i, h := range folded {
			for _, kw := range keywords {
				if strings.Contains(h, util.FoldHeader(kw)) {
					out[field] = headers[i]
					break headerLoop
				}
			}
		}
	}
	return out
}

// Conflicts lists headers assigned to more than one field, with the fields in
// canonical order.
func Conflicts(mapping internal.Mapping) map[string][]internal.Field {
	byHeader := map[string][]internal.Field{}
	for _, field := range internal.AllFields {
		if h, ok := mapping[field]; ok && h != "" {
			byHeader[h] = append(byHeader[h], field)
		}
	}
	out := map[string][]internal.Field{}
	for h, fields := range byHeader {
		if len(fields) > 1 {
			out[h] = fields
		}
	}
	return out
}

// ConflictHeaders returns the conflicting headers sorted, for stable output.
func ConflictHeaders(conflicts map[string][]internal.Field) []string {
	out := make([]string, 0, len(conflicts))
	for h := range conflicts {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}
