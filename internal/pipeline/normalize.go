package pipeline

import (
	"strings"

	"github.com/google/uuid"

	"campaignmap/internal"
	"campaignmap/internal/log"
	"campaignmap/internal/util"
)

const (
	defaultEngagementType = "email"
	CRMOther              = "Other"
)

var automationKeywords = []string{
	"automação", "automation", "fluxo", "flow", "workflow", "carrinho abandonado", "abandoned cart",
	"boas vindas", "welcome", "reengajamento", "re-engagement", "aniversário", "birthday",
	"pós-compra", "post-purchase", "recuperação", "recovery",
}

// Normalize turns one raw row into a campaign record. Unmapped numerics are 0,
// an unmapped engagement type is "email", anything unparseable degrades to 0.
func Normalize(row internal.Row, mapping internal.Mapping, crm string) internal.Campaign {
	get := func(field internal.Field) string {
		header, ok := mapping[field]
		if !ok || header == "" {
			return ""
		}
		return row[header]
	}
	num := func(field internal.Field) float64 {
		raw := get(field)
		v := util.ParseNumber(raw)
		if v == 0 && strings.TrimSpace(raw) != "" && !util.IsNumber(raw) && !util.IsPercentage(raw) {
			log.L.WithFields(log.Fields{"field": field, "value": raw}).Debugf("cell coerced to 0")
		}
		return v
	}

	rawEngagement := strings.TrimSpace(get(internal.FieldEngagementType))
	engagement := rawEngagement
	if _, mapped := mapping[internal.FieldEngagementType]; !mapped {
		engagement = defaultEngagementType
	}

	c := internal.Campaign{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(get(internal.FieldCampaignName)),
		CRM:            crm,
		EngagementType: engagement,
		Status:         string(internal.ImportCompleted),
		RawDate:        strings.TrimSpace(get(internal.FieldDate)),
		Sent:           num(internal.FieldSent),
		Opens:          num(internal.FieldOpens),
		Clicks:         num(internal.FieldClicks),
		Conversions:    num(internal.FieldConversions),
		Revenue:        num(internal.FieldRevenue),
	}
	if c.RawDate != "" {
		if t, ok := util.ParseDate(c.RawDate); ok {
			c.Date = t
		} else {
			log.L.WithField("value", c.RawDate).Debugf("unparseable date kept raw")
		}
	}

	c.Delivered = c.Sent
	if c.Delivered > 0 {
		c.OpenRate = c.Opens / c.Delivered * 100
		c.ClickRate = c.Clicks / c.Delivered * 100
	}
	if c.Clicks > 0 {
		c.ConversionRate = c.Conversions / c.Clicks * 100
	}
	c.Type = DetectCampaignType(rawEngagement, c.Name)
	return c
}

// NormalizeRows normalizes every row and drops the ones without a campaign name.
func NormalizeRows(rows []internal.Row, mapping internal.Mapping, crm string) ([]internal.Campaign, int) {
	out := make([]internal.Campaign, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		c := Normalize(row, mapping, crm)
		if c.Name == "" {
			dropped++
			continue
		}
		out = append(out, c)
	}
	return out, dropped
}

// DetectCampaignType maps the platform engagement type onto email, automation
// or sms. Without one, the campaign name decides.
func DetectCampaignType(engagementType, name string) internal.CampaignType {
	switch strings.ToLower(strings.TrimSpace(engagementType)) {
	case "newsletter_subscription":
		return internal.CampaignAutomation
	case "newsletter", "email":
		return internal.CampaignEmail
	case "sms":
		return internal.CampaignSMS
	case "":
	default:
		return internal.CampaignAutomation
	}

	if util.ContainsAny(name, automationKeywords) {
		return internal.CampaignAutomation
	}
	return internal.CampaignEmail
}

// DetectCRM labels the source platform from the filename, then the headers,
// then the matched template.
func DetectCRM(filename string, headers []string, matched *internal.Template) string {
	name := util.FoldHeader(filename)
	switch {
	case strings.Contains(name, "edrone"):
		return "Edrone"
	case strings.Contains(name, "sendinblue"), strings.Contains(name, "sendinpulse"):
		return "Sendinpulse"
	case util.ContainsAny(name, []string{"rdstation", "rd_station", "rd-station", "rd station"}):
		return "RD Station"
	case strings.Contains(name, "mailchimp"):
		return "Mailchimp"
	case strings.Contains(name, "hubspot"):
		return "HubSpot"
	}

	joined := util.FoldHeader(strings.Join(headers, " "))
	switch {
	case strings.Contains(joined, "edrone"):
		return "Edrone"
	case strings.Contains(joined, "sendinblue"):
		return "Sendinpulse"
	case strings.Contains(joined, "rd station"):
		return "RD Station"
	}

	if matched != nil && matched.DisplayName != "" {
		return matched.DisplayName
	}
	return CRMOther
}
