package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"campaignmap/internal"
	"campaignmap/internal/config"
	"campaignmap/internal/log"
	"campaignmap/internal/storage"
)

const traceAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Report email statuses.
const (
	EmailFetched      = "fetched"
	EmailProcessed    = "processed"
	EmailSkipped      = "skipped"
	EmailNeedsMapping = "needs_mapping"
	EmailFailed       = "failed"
)

type ImportService struct {
	db        *storage.DB
	cfg       config.Config
	templates TemplateLister
	mapper    *Mapper
}

func NewImportService(db *storage.DB, cfg config.Config, templates TemplateLister) *ImportService {
	return &ImportService{db: db, cfg: cfg, templates: templates, mapper: NewMapper(cfg, templates)}
}

func (s *ImportService) Mapper() *Mapper {
	return s.mapper
}

type ImportResult struct {
	ImportID   string
	Filename   string
	CRM        string
	TemplateID string
	Status     internal.ImportStatus
	Rows       int
	Imported   int
	Dropped    int
	Problems   []string
	Err        error
}

// ImportFile parses one file, resolves its mapping through the confirmer and
// stores the campaigns in a single transaction. A cancelled confirmation is
// recorded as needs_mapping and returns an error wrapping ErrImportCancelled.
func (s *ImportService) ImportFile(ctx context.Context, filename string, content []byte, confirmer Confirmer) (ImportResult, error) {
	start := time.Now()
	res := ImportResult{Filename: filename}

	table, err := ParseTable(filename, content)
	if err != nil {
		res.Status = internal.ImportFailed
		res.Err = err
		return res, err
	}
	res.Rows = len(table.Rows)

	proposal := s.mapper.Propose(table.Headers, table.Sample(s.cfg.SampleSize))
	proposal.Filename = filename
	res.TemplateID = proposal.TemplateID
	res.Problems = proposal.Problems

	logger := log.L.WithFields(log.Fields{"file": filename, "rows": res.Rows, "template": proposal.TemplateID})
	if len(proposal.Conflicts) > 0 {
		logger.Warnf("headers suggested for several fields: %s", strings.Join(ConflictHeaders(proposal.Conflicts), ", "))
	}

	var matched *internal.Template
	if proposal.TemplateID != "" {
		if tpl, ok := s.templates.Get(proposal.TemplateID); ok {
			matched = &tpl
		}
	}
	res.CRM = DetectCRM(filename, table.Headers, matched)
	res.ImportID = uuid.NewString()

	mapping, err := s.mapper.Resolve(ctx, proposal, confirmer)
	if err != nil {
		res.Err = err
		if !errors.Is(err, ErrImportCancelled) {
			res.Status = internal.ImportFailed
			return res, err
		}
		res.Status = internal.ImportNeedsMapping
		if recErr := s.db.RecordImport(s.record(res, proposal.Candidate)); recErr != nil {
			return res, recErr
		}
		logger.WithError(err).Warnf("import parked until a mapping is confirmed")
		return res, err
	}

	campaigns, dropped := NormalizeRows(table.Rows, mapping, res.CRM)
	for i := range campaigns {
		campaigns[i].ImportID = res.ImportID
	}
	res.Imported = len(campaigns)
	res.Dropped = dropped
	res.Status = internal.ImportCompleted
	res.Problems = nil

	if err := s.db.SaveImport(s.record(res, mapping), campaigns); err != nil {
		res.Status = internal.ImportFailed
		res.Err = err
		return res, err
	}

	logger.WithFields(log.Fields{"crm": res.CRM, "imported": res.Imported, "dropped": res.Dropped, "ms": time.Since(start).Milliseconds()}).Info("import completed")
	return res, nil
}

// ImportPaths imports every file in turn; one file failing does not stop the rest.
func (s *ImportService) ImportPaths(ctx context.Context, paths []string, confirmer Confirmer) []ImportResult {
	out := make([]ImportResult, 0, len(paths))
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		content, err := os.ReadFile(path)
		if err != nil {
			out = append(out, ImportResult{Filename: filepath.Base(path), Status: internal.ImportFailed, Err: err})
			continue
		}
		res, err := s.ImportFile(ctx, filepath.Base(path), content, confirmer)
		if err != nil {
			log.L.WithField("file", path).WithError(err).Error("import failed")
		}
		out = append(out, res)
	}
	return out
}

func (s *ImportService) record(res ImportResult, mapping internal.Mapping) internal.ImportRecord {
	rec := internal.ImportRecord{
		ID:       res.ImportID,
		Filename: res.Filename,
		CRM:      res.CRM,
		Mapping:  mapping,
		RowCount: res.Rows,
		Imported: res.Imported,
		Dropped:  res.Dropped,
		Status:   res.Status,
	}
	if res.TemplateID != "" {
		id := res.TemplateID
		rec.TemplateID = &id
	}
	return rec
}

// ReportProcessingService turns stored report emails into imports.
type ReportProcessingService struct {
	db       *storage.DB
	importer *ImportService
}

func NewReportProcessingService(db *storage.DB, importer *ImportService) *ReportProcessingService {
	return &ReportProcessingService{db: db, importer: importer}
}

type ProcessResult struct {
	EmailID  int
	Status   string
	Imports  []ImportResult
	Imported int
}

func (s *ReportProcessingService) ProcessByProviderMessageID(ctx context.Context, provider, messageID string) (ProcessResult, error) {
	email, err := s.db.MustReportEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessEmail(ctx, email)
}

func (s *ReportProcessingService) ProcessPending(ctx context.Context, limit int, provider string) (int, int, error) {
	pending, err := s.db.ListReportEmailsByStatus(EmailFetched, limit)
	if err != nil {
		return 0, 0, err
	}
	processedEmails := 0
	importedCampaigns := 0
	for _, email := range pending {
		if err := ctx.Err(); err != nil {
			return processedEmails, importedCampaigns, err
		}
		if provider != "" && email.Provider != provider {
			continue
		}
		res, err := s.ProcessEmail(ctx, email)
		if err != nil {
			log.L.WithFields(log.Fields{"email": email.ID, "messageId": email.MessageID}).WithError(err).Error("process report email")
			continue
		}
		processedEmails++
		importedCampaigns += res.Imported
	}
	return processedEmails, importedCampaigns, nil
}

// ProcessEmail imports every tabular attachment of a report email without a
// human in the loop: anything that does not match a template is parked.
func (s *ReportProcessingService) ProcessEmail(ctx context.Context, email internal.ReportEmailRow) (ProcessResult, error) {
	start := time.Now()
	raw, err := os.ReadFile(email.RawRef)
	if err != nil {
		return ProcessResult{}, s.fail(email.ID, err)
	}

	report, err := ReadReportEmail(raw)
	if err != nil {
		return ProcessResult{}, s.fail(email.ID, err)
	}

	res := ProcessResult{EmailID: email.ID}
	detect := DetectReportEmail(firstNonEmpty(report.Subject, email.Subject), report.Text, report.HTML, report.AttachmentNames)
	if !detect.IsReport {
		res.Status = EmailSkipped
		_ = s.db.UpdateReportEmailStatus(email.ID, res.Status)
		s.insertRun(email.ID, start, map[string]int{"attachments": len(report.Attachments), "imported": 0})
		return res, nil
	}

	completed, parked, failed := 0, 0, 0
	for _, att := range report.Attachments {
		imp, err := s.importer.ImportFile(ctx, att.Name, att.Content, AutoOnlyConfirmer{})
		res.Imports = append(res.Imports, imp)
		switch {
		case err == nil:
			completed++
			res.Imported += imp.Imported
		case errors.Is(err, ErrImportCancelled):
			parked++
		default:
			var perr *ParseError
			if !errors.As(err, &perr) {
				if ctx.Err() != nil {
					return res, err
				}
				return res, s.fail(email.ID, err)
			}
			failed++
		}
	}

	switch {
	case completed > 0:
		res.Status = EmailProcessed
	case parked > 0:
		res.Status = EmailNeedsMapping
	default:
		res.Status = EmailFailed
	}
	if err := s.db.UpdateReportEmailStatus(email.ID, res.Status); err != nil {
		return res, err
	}
	s.insertRun(email.ID, start, map[string]int{
		"attachments": len(report.Attachments),
		"completed":   completed,
		"parked":      parked,
		"failed":      failed,
		"imported":    res.Imported,
	})
	return res, nil
}

// fail marks the email failed so later cycles do not pick it up again.
func (s *ReportProcessingService) fail(emailID int, cause error) error {
	if err := s.db.UpdateReportEmailStatus(emailID, EmailFailed); err != nil {
		log.L.WithError(err).Warnf("mark email %d failed", emailID)
	}
	return cause
}

func (s *ReportProcessingService) insertRun(emailID int, start time.Time, counts map[string]int) {
	timings := map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())}
	if err := s.db.InsertRun(traceID(), &emailID, timings, counts); err != nil {
		log.L.WithError(err).Warnf("record run for email %d", emailID)
	}
}

func traceID() string {
	id, err := gonanoid.Generate(traceAlphabet, 16)
	if err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return id
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
