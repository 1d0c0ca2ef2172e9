package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaignmap/internal"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleImport() (internal.ImportRecord, []internal.Campaign) {
	templateID := "google_ads"
	rec := internal.ImportRecord{
		ID:         "imp-1",
		Filename:   "ads.csv",
		CRM:        "Google Ads",
		TemplateID: &templateID,
		Mapping:    internal.Mapping{internal.FieldCampaignName: "Campaign", internal.FieldSent: "Impressions"},
		RowCount:   2,
		Imported:   2,
		Status:     internal.ImportCompleted,
	}
	campaigns := []internal.Campaign{
		{ID: "c-1", Name: "Black Friday", CRM: "Google Ads", Type: internal.CampaignEmail, Status: "completed", RawDate: "2024-11-29", Date: time.Date(2024, 11, 29, 0, 0, 0, 0, time.UTC), Sent: 1000, Delivered: 1000, Clicks: 50},
		{ID: "c-2", Name: "Welcome flow", CRM: "Google Ads", Type: internal.CampaignAutomation, Status: "completed", RawDate: "2024-05-01", Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Sent: 200, Delivered: 200},
	}
	return rec, campaigns
}

func TestSaveImportAndListCampaigns(t *testing.T) {
	db := openTemp(t)
	rec, campaigns := sampleImport()

	require.NoError(t, db.SaveImport(rec, campaigns))

	all, err := db.ListCampaigns(internal.CampaignFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Black Friday", all[0].Name)
	assert.Equal(t, "imp-1", all[0].ImportID)
	assert.True(t, all[0].Date.Equal(campaigns[0].Date))

	automation, err := db.ListCampaigns(internal.CampaignFilter{Type: internal.CampaignAutomation})
	require.NoError(t, err)
	require.Len(t, automation, 1)
	assert.Equal(t, "Welcome flow", automation[0].Name)

	search, err := db.ListCampaigns(internal.CampaignFilter{Search: "black"})
	require.NoError(t, err)
	require.Len(t, search, 1)

	since := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	recent, err := db.ListCampaigns(internal.CampaignFilter{Since: &since})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "c-1", recent[0].ID)

	imports, err := db.ListImports(10)
	require.NoError(t, err)
	require.Len(t, imports, 1)
	require.NotNil(t, imports[0].TemplateID)
	assert.Equal(t, "google_ads", *imports[0].TemplateID)
	assert.Equal(t, "Impressions", imports[0].Mapping[internal.FieldSent])

	deleted, err := db.ClearCampaigns()
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	all, err = db.ListCampaigns(internal.CampaignFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMetadataRoundTrip(t *testing.T) {
	db := openTemp(t)

	value, err := db.GetMetadata("csv_mapping_templates")
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, db.SetMetadata("csv_mapping_templates", `{"a":1}`))
	require.NoError(t, db.SetMetadata("csv_mapping_templates", `{"b":2}`))

	value, err = db.GetMetadata("csv_mapping_templates")
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, `{"b":2}`, *value)
}

func TestReportEmailLifecycle(t *testing.T) {
	db := openTemp(t)

	row, err := db.UpsertReportEmail("imap", "INBOX:42", "Weekly report", "noreply@edrone.me", "2024-05-01T10:00:00Z", "abc", "/tmp/a.eml", "fetched")
	require.NoError(t, err)
	assert.Equal(t, "fetched", row.Status)

	require.NoError(t, db.UpdateReportEmailStatus(row.ID, "processed"))

	again, err := db.UpsertReportEmail("imap", "INBOX:42", "Weekly report", "noreply@edrone.me", "2024-05-01T10:00:00Z", "abc", "/tmp/a.eml", "fetched")
	require.NoError(t, err)
	assert.Equal(t, row.ID, again.ID)
	assert.Equal(t, "processed", again.Status)

	pending, err := db.ListReportEmailsByStatus("fetched", 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	emailID := row.ID
	require.NoError(t, db.InsertRun("trace", &emailID, map[string]float64{"totalMs": 3}, map[string]int{"campaigns": 1}))

	_, err = db.MustReportEmailByProviderMessageID("imap", "missing")
	require.Error(t, err)
}

func TestSaveImportRollsBackOnCampaignFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	rec, campaigns := sampleImport()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO imports").WillReturnResult(sqlmock.NewResult(1, 1))
	prep := mock.ExpectPrepare("INSERT INTO campaigns")
	prep.ExpectExec().WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = New(conn).SaveImport(rec, campaigns)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Black Friday")
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClearCampaignsRollsBackOnImportFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM campaigns").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM imports").WillReturnError(errors.New("locked"))
	mock.ExpectRollback()

	_, err = New(conn).ClearCampaigns()
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
