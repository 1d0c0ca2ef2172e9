package pipeline

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	"github.com/xuri/excelize/v2"

	"campaignmap/internal"
)

var (
	ErrNoHeaders         = errors.New("no header row found")
	ErrUnsupportedFormat = errors.New("unsupported file format")

	reSpaces = regexp.MustCompile(`\s+`)
)

// headerScanRows bounds how far down a sheet the header row is looked for;
// exports often start with a title line or two.
const headerScanRows = 10

// ParseError reports a file that could not be turned into a table. It is fatal
// for that file only.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Table is the header list and rows of one uploaded file.
type Table struct {
	Filename string
	Sheet    string
	Headers  []string
	Rows     []internal.Row
}

// Sample returns at most n leading rows.
func (t Table) Sample(n int) []internal.Row {
	if n <= 0 || n >= len(t.Rows) {
		return t.Rows
	}
	return t.Rows[:n]
}

func IsTabularFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", ".tsv", ".xlsx", ".xlsm", ".xls", ".html", ".htm":
		return true
	}
	return false
}

// ParseTable reads CSV, XLSX and HTML-table exports. Legacy .xls files are only
// accepted when they are HTML in disguise, which is what most platforms send.
func ParseTable(filename string, content []byte) (Table, error) {
	var (
		sheet string
		rows  [][]string
		err   error
	)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt", ".tsv":
		rows, err = parseCSV(content)
	case ".xlsx", ".xlsm":
		sheet, rows, err = parseXLSX(content)
	case ".html", ".htm":
		rows, err = parseHTMLTable(string(content))
	case ".xls":
		if looksLikeHTML(content) {
			rows, err = parseHTMLTable(string(content))
		} else {
			sheet, rows, err = parseXLSX(content)
		}
	default:
		err = ErrUnsupportedFormat
	}
	if err != nil {
		return Table{}, &ParseError{File: filename, Err: err}
	}

	table, err := buildTable(rows)
	if err != nil {
		return Table{}, &ParseError{File: filename, Err: err}
	}
	table.Filename = filename
	table.Sheet = sheet
	return table, nil
}

func parseCSV(content []byte) ([][]string, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(content))
	r.Comma = sniffDelimiter(content)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// sniffDelimiter picks the most frequent of , ; and tab on the first line.
func sniffDelimiter(content []byte) rune {
	line := content
	if idx := bytes.IndexByte(content, '\n'); idx >= 0 {
		line = content[:idx]
	}
	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func parseXLSX(content []byte) (string, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		if len(rows) == 0 {
			continue
		}
		return sheet, rows, nil
	}
	return "", nil, ErrNoHeaders
}

// parseHTMLTable picks the first table whose header row names a campaign,
// falling back to the first table with at least two rows.
func parseHTMLTable(html string) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var fallback, chosen [][]string
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return true
		}

		var grid [][]string
		rows.Each(func(_ int, row *goquery.Selection) {
			cells := []string{}
			row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, normalizeSpaces(cell.Text()))
			})
			grid = append(grid, cells)
		})

		if fallback == nil {
			fallback = grid
		}
		headers := make([]string, 0, len(grid[0]))
		for _, h := range grid[0] {
			headers = append(headers, strings.ToLower(h))
		}
		if findHeaderIndex(headers, fieldKeywords[internal.FieldCampaignName]) >= 0 {
			chosen = grid
			return false
		}
		return true
	})

	if chosen != nil {
		return chosen, nil
	}
	if fallback != nil {
		return fallback, nil
	}
	return nil, ErrNoHeaders
}

func buildTable(rows [][]string) (Table, error) {
	headerIdx := findHeaderRow(rows)
	if headerIdx < 0 {
		return Table{}, ErrNoHeaders
	}

	headers := uniqueHeaders(normalizeCells(rows[headerIdx]))
	out := Table{Headers: headers}
	for _, raw := range rows[headerIdx+1:] {
		cells := normalizeCells(raw)
		if countNonEmpty(cells) == 0 {
			continue
		}
		row := make(internal.Row, len(headers))
		for i, h := range headers {
			row[h] = pickCell(cells, i, -1)
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// findHeaderRow skips leading title lines and returns the first row that is
// at least half as wide as the widest row in the scan window.
func findHeaderRow(rows [][]string) int {
	limit := min(len(rows), headerScanRows)
	widest := 0
	for i := 0; i < limit; i++ {
		widest = max(widest, countNonEmpty(rows[i]))
	}
	if widest == 0 {
		return -1
	}
	minCells := 1
	if widest > 1 {
		minCells = max(2, (widest+1)/2)
	}
	for i := 0; i < limit; i++ {
		if countNonEmpty(rows[i]) >= minCells {
			return i
		}
	}
	return -1
}

// uniqueHeaders drops trailing blank columns, names inner blanks "Column N"
// and suffixes duplicates with _1, _2.
func uniqueHeaders(cells []string) []string {
	last := len(cells) - 1
	for last >= 0 && cells[last] == "" {
		last--
	}
	cells = cells[:last+1]

	seen := map[string]struct{}{}
	out := make([]string, 0, len(cells))
	for i, h := range cells {
		if h == "" {
			h = fmt.Sprintf("Column %d", i+1)
		}
		if _, ok := seen[h]; ok {
			base := h
			for n := 1; ; n++ {
				h = fmt.Sprintf("%s_%d", base, n)
				if _, taken := seen[h]; !taken {
					break
				}
			}
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// Attachment is one tabular file carried by a report email.
type Attachment struct {
	Name    string
	Content []byte
}

type ReportEmail struct {
	Subject         string
	Text            string
	HTML            string
	AttachmentNames []string
	Attachments     []Attachment
}

// ReadReportEmail parses a raw message and keeps its tabular attachments. When
// there are none, an HTML body containing a table is offered as "body.html".
func ReadReportEmail(raw []byte) (ReportEmail, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return ReportEmail{}, err
	}

	out := ReportEmail{Subject: env.GetHeader("Subject"), Text: env.Text, HTML: env.HTML}
	for _, att := range env.Attachments {
		filename := strings.TrimSpace(att.FileName)
		if filename == "" {
			filename = "attachment"
		}
		out.AttachmentNames = append(out.AttachmentNames, filename)
		if IsTabularFile(filename) {
			out.Attachments = append(out.Attachments, Attachment{Name: filename, Content: att.Content})
		}
	}

	if len(out.Attachments) == 0 && strings.Contains(strings.ToLower(env.HTML), "<table") {
		out.Attachments = append(out.Attachments, Attachment{Name: "body.html", Content: []byte(env.HTML)})
	}
	return out, nil
}

func looksLikeHTML(content []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(content))
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.HasPrefix(head, []byte("<")) || bytes.Contains(head, []byte("<table"))
}

func normalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

func normalizeCells(row []string) []string {
	out := make([]string, 0, len(row))
	for _, c := range row {
		out = append(out, normalizeSpaces(c))
	}
	return out
}

func countNonEmpty(cells []string) int {
	n := 0
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			n++
		}
	}
	return n
}

func findHeaderIndex(headers []string, probes []string) int {
	for i, h := range headers {
		for _, probe := range probes {
			if strings.Contains(h, probe) {
				return i
			}
		}
	}
	return -1
}

func pickCell(cells []string, idx int, fallback int) string {
	if idx >= 0 && idx < len(cells) {
		return strings.TrimSpace(cells[idx])
	}
	if fallback >= 0 && fallback < len(cells) {
		return strings.TrimSpace(cells[fallback])
	}
	return ""
}
