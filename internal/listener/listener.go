package listener

import (
	"context"
	"fmt"
	"strings"
	"time"

	"campaignmap/internal/config"
	"campaignmap/internal/connectors"
	gmailconnector "campaignmap/internal/connectors/gmail"
	imapconnector "campaignmap/internal/connectors/imap"
	"campaignmap/internal/log"
	"campaignmap/internal/pipeline"
	"campaignmap/internal/storage"
)

// Service polls a mailbox for scheduled campaign reports and imports their
// tables. Anything that does not match a template is parked as needs_mapping
// for a human to finish from the CLI.
type Service struct {
	db        *storage.DB
	cfg       config.Config
	processor *pipeline.ReportProcessingService
	connect   func(ctx context.Context, provider string) (connectors.MailConnector, error)
}

func NewService(db *storage.DB, cfg config.Config, importer *pipeline.ImportService) *Service {
	return &Service{
		db:        db,
		cfg:       cfg,
		processor: pipeline.NewReportProcessingService(db, importer),
		connect: func(ctx context.Context, provider string) (connectors.MailConnector, error) {
			return NewConnector(ctx, cfg, provider)
		},
	}
}

type CycleResult struct {
	Provider  string
	Fetch     connectors.FetchResult
	Processed int
	Imported  int
}

func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.ReportListenerIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			log.L.WithError(err).Error("listener cycle failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

// RunOnce fetches new messages and processes everything pending for the
// configured provider.
func (s *Service) RunOnce(ctx context.Context) (CycleResult, error) {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.ReportListenerProvider))
	res := CycleResult{Provider: provider}

	mailConnector, err := s.connect(ctx, provider)
	if err != nil {
		return res, err
	}

	fetchService := connectors.NewFetchService(s.db, s.cfg.RawMailDir, mailConnector)
	res.Fetch, err = fetchService.FetchAndStore(ctx, s.cfg.ReportListenerLabel, s.cfg.ReportListenerFetchMax)
	if err != nil {
		return res, err
	}

	res.Processed, res.Imported, err = s.processor.ProcessPending(ctx, s.cfg.ReportListenerProcessBatch, provider)
	if err != nil {
		return res, err
	}

	log.L.WithFields(log.Fields{
		"provider":  provider,
		"fetched":   res.Fetch.Fetched,
		"stored":    res.Fetch.Stored,
		"processed": res.Processed,
		"imported":  res.Imported,
	}).Info("listener cycle done")
	return res, nil
}

// NewConnector builds the mail connector for provider ("imap" or "gmail").
func NewConnector(ctx context.Context, cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(ctx, cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}
