package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"campaignmap/internal"
)

const dateLayout = "2006-01-02"

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

// New wraps an already opened connection without touching the schema.
func New(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS imports (
  id TEXT PRIMARY KEY,
  filename TEXT NOT NULL,
  crm TEXT NOT NULL,
  templateId TEXT,
  mappingJson TEXT NOT NULL,
  rowCount INTEGER NOT NULL,
  imported INTEGER NOT NULL,
  dropped INTEGER NOT NULL,
  status TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS campaigns (
  id TEXT PRIMARY KEY,
  importId TEXT NOT NULL,
  name TEXT NOT NULL,
  crm TEXT NOT NULL,
  engagementType TEXT NOT NULL,
  type TEXT NOT NULL,
  status TEXT NOT NULL,
  rawDate TEXT NOT NULL,
  date TEXT NOT NULL,
  sent REAL NOT NULL,
  delivered REAL NOT NULL,
  opens REAL NOT NULL,
  clicks REAL NOT NULL,
  conversions REAL NOT NULL,
  revenue REAL NOT NULL,
  openRate REAL NOT NULL,
  clickRate REAL NOT NULL,
  conversionRate REAL NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(importId) REFERENCES imports(id)
);
CREATE INDEX IF NOT EXISTS idx_campaigns_crm ON campaigns(crm);
CREATE INDEX IF NOT EXISTS idx_campaigns_date ON campaigns(date);

CREATE TABLE IF NOT EXISTS report_emails (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  emailId INTEGER,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(emailId) REFERENCES report_emails(id)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return errors.Wrap(err, "init schema")
}

// SaveImport writes the import record and all of its campaigns in one transaction.
func (d *DB) SaveImport(rec internal.ImportRecord, campaigns []internal.Campaign) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return errors.Wrap(err, "begin import tx")
	}
	defer func() { _ = tx.Rollback() }()

	mappingJSON, _ := json.Marshal(rec.Mapping)
	if _, err := tx.Exec(`
INSERT INTO imports (id, filename, crm, templateId, mappingJson, rowCount, imported, dropped, status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, rec.ID, rec.Filename, rec.CRM, rec.TemplateID, string(mappingJSON), rec.RowCount, rec.Imported, rec.Dropped, string(rec.Status)); err != nil {
		return errors.Wrapf(err, "insert import %s", rec.ID)
	}

	if len(campaigns) > 0 {
		stmt, err := tx.Prepare(`
INSERT INTO campaigns (
  id, importId, name, crm, engagementType, type, status, rawDate, date,
  sent, delivered, opens, clicks, conversions, revenue, openRate, clickRate, conversionRate
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
		if err != nil {
			return errors.Wrap(err, "prepare campaign insert")
		}
		defer stmt.Close()

		for _, c := range campaigns {
			if _, err := stmt.Exec(
				c.ID, rec.ID, c.Name, c.CRM, c.EngagementType, string(c.Type), c.Status, c.RawDate, formatDate(c.Date),
				c.Sent, c.Delivered, c.Opens, c.Clicks, c.Conversions, c.Revenue, c.OpenRate, c.ClickRate, c.ConversionRate,
			); err != nil {
				return errors.Wrapf(err, "insert campaign %q", c.Name)
			}
		}
	}

	return errors.Wrap(tx.Commit(), "commit import")
}

// RecordImport stores an import that produced no campaigns, e.g. one still waiting for a mapping.
func (d *DB) RecordImport(rec internal.ImportRecord) error {
	return d.SaveImport(rec, nil)
}

func (d *DB) ListImports(limit int) ([]internal.ImportRecord, error) {
	rows, err := d.conn.Query(`
SELECT id, filename, crm, templateId, mappingJson, rowCount, imported, dropped, status, createdAt
FROM imports ORDER BY createdAt DESC, id ASC LIMIT ?
`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list imports")
	}
	defer rows.Close()

	var out []internal.ImportRecord
	for rows.Next() {
		var rec internal.ImportRecord
		var mappingJSON, status string
		if err := rows.Scan(&rec.ID, &rec.Filename, &rec.CRM, &rec.TemplateID, &mappingJSON, &rec.RowCount, &rec.Imported, &rec.Dropped, &status, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Status = internal.ImportStatus(status)
		_ = json.Unmarshal([]byte(mappingJSON), &rec.Mapping)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (d *DB) ListCampaigns(filter internal.CampaignFilter) ([]internal.Campaign, error) {
	query := `
SELECT id, importId, name, crm, engagementType, type, status, rawDate, date,
       sent, delivered, opens, clicks, conversions, revenue, openRate, clickRate, conversionRate
FROM campaigns WHERE 1 = 1`
	var args []any

	if filter.CRM != "" {
		query += ` AND crm = ?`
		args = append(args, filter.CRM)
	}
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(filter.Type))
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		like := "%" + search + "%"
		query += ` AND (LOWER(name) LIKE ? OR LOWER(crm) LIKE ?)`
		args = append(args, like, like)
	}
	if filter.Since != nil {
		query += ` AND date != '' AND date >= ?`
		args = append(args, filter.Since.Format(dateLayout))
	}
	query += ` ORDER BY date DESC, name ASC`

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list campaigns")
	}
	defer rows.Close()

	var out []internal.Campaign
	for rows.Next() {
		var c internal.Campaign
		var campaignType, date string
		if err := rows.Scan(
			&c.ID, &c.ImportID, &c.Name, &c.CRM, &c.EngagementType, &campaignType, &c.Status, &c.RawDate, &date,
			&c.Sent, &c.Delivered, &c.Opens, &c.Clicks, &c.Conversions, &c.Revenue, &c.OpenRate, &c.ClickRate, &c.ConversionRate,
		); err != nil {
			return nil, err
		}
		c.Type = internal.CampaignType(campaignType)
		if date != "" {
			c.Date, _ = time.Parse(dateLayout, date)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ClearCampaigns removes every campaign and import and returns the number of campaigns deleted.
func (d *DB) ClearCampaigns() (int64, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return 0, errors.Wrap(err, "begin clear tx")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`DELETE FROM campaigns`)
	if err != nil {
		return 0, errors.Wrap(err, "delete campaigns")
	}
	deleted, _ := res.RowsAffected()
	if _, err := tx.Exec(`DELETE FROM imports`); err != nil {
		return 0, errors.Wrap(err, "delete imports")
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit clear")
	}
	return deleted, nil
}

func (d *DB) UpsertReportEmail(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.ReportEmailRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO report_emails (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.ReportEmailRow{}, errors.Wrap(err, "upsert report email")
	}

	row, err := d.GetReportEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.ReportEmailRow{}, err
	}
	if row == nil {
		return internal.ReportEmailRow{}, errors.New("failed to upsert report email")
	}
	return *row, nil
}

func (d *DB) GetReportEmailByProviderMessageID(provider, messageID string) (*internal.ReportEmailRow, error) {
	var row internal.ReportEmailRow
	err := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM report_emails WHERE provider = ? AND messageId = ?
`, provider, messageID).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) GetReportEmailByID(id int) (*internal.ReportEmailRow, error) {
	var row internal.ReportEmailRow
	err := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM report_emails WHERE id = ?
`, id).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) ListReportEmailsByStatus(status string, limit int) ([]internal.ReportEmailRow, error) {
	rows, err := d.conn.Query(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM report_emails WHERE status = ? ORDER BY receivedAt ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list report emails")
	}
	defer rows.Close()

	var out []internal.ReportEmailRow
	for rows.Next() {
		var row internal.ReportEmailRow
		if err := rows.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateReportEmailStatus(emailID int, status string) error {
	_, err := d.conn.Exec(`UPDATE report_emails SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, emailID)
	return errors.Wrapf(err, "update report email %d", emailID)
}

func (d *DB) InsertRun(traceID string, emailID *int, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, emailId, timingsJson, countsJson) VALUES (?, ?, ?, ?)`, traceID, emailID, string(timingsJSON), string(countsJSON))
	return errors.Wrap(err, "insert run")
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return errors.Wrapf(err, "set metadata %s", key)
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get metadata %s", key)
	}
	return &value, nil
}

func (d *DB) MustReportEmailByProviderMessageID(provider, messageID string) (internal.ReportEmailRow, error) {
	row, err := d.GetReportEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.ReportEmailRow{}, err
	}
	if row == nil {
		return internal.ReportEmailRow{}, fmt.Errorf("report email not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
