package pipeline

import (
	"bytes"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"
)

func mkXLSX(rows [][]any) []byte {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	buf := bytes.NewBuffer(nil)
	_, _ = f.WriteTo(buf)
	return buf.Bytes()
}

func TestParseXLSX(t *testing.T) {
	blob := mkXLSX([][]any{
		{"Relatório semanal"},
		{"Campaign", "Day", "Clicks"},
		{"Promo", "2024-05-01", 10},
		{"Launch", "2024-05-02", 4},
	})
	table, err := ParseTable("weekly.xlsx", blob)
	if err != nil {
		t.Fatal(err)
	}
	if table.Sheet != "Sheet1" {
		t.Fatalf("sheet=%q", table.Sheet)
	}
	if len(table.Headers) != 3 || table.Headers[0] != "Campaign" {
		t.Fatalf("headers=%v", table.Headers)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("len=%d", len(table.Rows))
	}
	if table.Rows[0]["Clicks"] != "10" || table.Rows[1]["Campaign"] != "Launch" {
		t.Fatalf("rows=%v", table.Rows)
	}
}

func TestParseXLSXBroken(t *testing.T) {
	_, err := ParseTable("weekly.xlsx", []byte("not a zip archive"))
	var perr *ParseError
	if !errors.As(err, &perr) || perr.File != "weekly.xlsx" {
		t.Fatalf("err=%v", err)
	}
}
