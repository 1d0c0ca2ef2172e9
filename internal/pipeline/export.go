package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"

	"campaignmap/internal"
)

var exportHeaders = []string{
	"Campanha", "CRM", "Data", "Enviados", "Aberturas", "Taxa Abertura", "Cliques", "CTR", "Conversões", "Status",
}

func ExportCampaignsToXLSX(campaigns []internal.Campaign, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	headers := []string{
		"id", "name", "crm", "type", "engagement_type", "date", "raw_date",
		"sent", "delivered", "opens", "clicks", "conversions", "revenue",
		"open_rate", "click_rate", "conversion_rate",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, c := range campaigns {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, c.ID)
		set(2, c.Name)
		set(3, c.CRM)
		set(4, string(c.Type))
		set(5, c.EngagementType)
		set(6, formatDay(c))
		set(7, c.RawDate)
		set(8, c.Sent)
		set(9, c.Delivered)
		set(10, c.Opens)
		set(11, c.Clicks)
		set(12, c.Conversions)
		set(13, c.Revenue)
		set(14, c.OpenRate)
		set(15, c.ClickRate)
		set(16, c.ConversionRate)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

// WriteCampaignsCSV writes the dashboard CSV layout with rates as "12.34%".
func WriteCampaignsCSV(w io.Writer, campaigns []internal.Campaign) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeaders); err != nil {
		return err
	}
	for _, c := range campaigns {
		record := []string{
			c.Name,
			c.CRM,
			formatDay(c),
			fmt.Sprintf("%.0f", c.Sent),
			fmt.Sprintf("%.0f", c.Opens),
			fmt.Sprintf("%.2f%%", c.OpenRate),
			fmt.Sprintf("%.0f", c.Clicks),
			fmt.Sprintf("%.2f%%", c.ClickRate),
			fmt.Sprintf("%.0f", c.Conversions),
			c.Status,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ExportCampaignsToCSV(campaigns []internal.Campaign, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if err := WriteCampaignsCSV(f, campaigns); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

type MonthlySummary struct {
	Month        string
	Campaigns    int
	Sent         float64
	Conversions  float64
	Revenue      float64
	AvgOpenRate  float64
	AvgClickRate float64
}

// SummarizeByMonth groups campaigns by YYYY-MM, oldest first. Campaigns
// without a parsed date are left out.
func SummarizeByMonth(campaigns []internal.Campaign) []MonthlySummary {
	byMonth := map[string]*MonthlySummary{}
	for _, c := range campaigns {
		if c.Date.IsZero() {
			continue
		}
		key := c.Date.Format("2006-01")
		s, ok := byMonth[key]
		if !ok {
			s = &MonthlySummary{Month: key}
			byMonth[key] = s
		}
		s.Campaigns++
		s.Sent += c.Sent
		s.Conversions += c.Conversions
		s.Revenue += c.Revenue
		s.AvgOpenRate += c.OpenRate
		s.AvgClickRate += c.ClickRate
	}

	out := make([]MonthlySummary, 0, len(byMonth))
	for _, s := range byMonth {
		s.AvgOpenRate /= float64(s.Campaigns)
		s.AvgClickRate /= float64(s.Campaigns)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

func formatDay(c internal.Campaign) string {
	if c.Date.IsZero() {
		return c.RawDate
	}
	return c.Date.Format("2006-01-02")
}
