package pipeline

import (
	"strings"

	"campaignmap/internal"
	"campaignmap/internal/util"
)

const DefaultTypeThreshold = 0.7

// DetectColumnTypes classifies every header by majority vote over the sample.
func DetectColumnTypes(headers []string, sample []internal.Row) map[string]internal.ColumnType {
	return DetectColumnTypesWithThreshold(headers, sample, DefaultTypeThreshold)
}

// DetectColumnTypesWithThreshold checks date, number and percentage in that
// order; the first whose share of non-empty values exceeds threshold wins.
func DetectColumnTypesWithThreshold(headers []string, sample []internal.Row, threshold float64) map[string]internal.ColumnType {
	out := make(map[string]internal.ColumnType, len(headers))
	for _, h := range headers {
		values := make([]string, 0, len(sample))
		for _, row := range sample {
			if v := strings.TrimSpace(row[h]); v != "" {
				values = append(values, v)
			}
		}
		out[h] = classifyValues(values, threshold)
	}
	return out
}

func classifyValues(values []string, threshold float64) internal.ColumnType {
	if len(values) == 0 {
		return internal.ColumnUnknown
	}

	predicates := []struct {
		kind  internal.ColumnType
		match func(string) bool
	}{
		{internal.ColumnDate, util.IsDate},
		{internal.ColumnNumber, util.IsNumber},
		{internal.ColumnPercentage, util.IsPercentage},
	}
	for _, p := range predicates {
		hits := 0
		for _, v := range values {
			if p.match(v) {
				hits++
			}
		}
		if float64(hits)/float64(len(values)) > threshold {
			return p.kind
		}
	}
	return internal.ColumnText
}

type DetectResult struct {
	IsReport bool
	Score    float64
	Reason   string
}

var reportKeywords = []string{"relatório", "relatorio", "report", "export", "campanha", "campaign", "desempenho", "performance", "métricas", "metrics"}

// DetectReportEmail scores an inbound message as a scheduled campaign report.
// A tabular attachment or an HTML table is required for a positive result.
func DetectReportEmail(subject, text, html string, attachmentNames []string) DetectResult {
	subject = strings.ToLower(subject)
	text = strings.ToLower(text)
	html = strings.ToLower(html)

	score := 0.0
	for _, kw := range reportKeywords {
		if strings.Contains(subject, kw) {
			score += 0.2
		}
		if strings.Contains(text, kw) || strings.Contains(html, kw) {
			score += 0.1
		}
	}

	hasTable := false
	for _, name := range attachmentNames {
		if IsTabularFile(name) {
			score += 0.4
			hasTable = true
			break
		}
	}
	if strings.Contains(html, "<table") {
		score += 0.25
		hasTable = true
	}
	if score > 1 {
		score = 1
	}

	isReport := hasTable && score >= 0.45
	reason := "rules_negative"
	switch {
	case isReport:
		reason = "rules_positive"
	case !hasTable:
		reason = "no_table"
	}

	return DetectResult{IsReport: isReport, Score: score, Reason: reason}
}
