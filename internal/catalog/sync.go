package catalog

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"campaignmap/internal"
	"campaignmap/internal/config"
	"campaignmap/internal/log"
	"campaignmap/internal/storage"
)

const lastSyncKey = "catalog.last_template_sync"

// TemplateSaver is the write side of the template registry.
type TemplateSaver interface {
	Save(ctx context.Context, id string, tpl internal.Template) error
}

type SyncService struct {
	db       *storage.DB
	client   *Client
	registry TemplateSaver
}

func NewSyncService(db *storage.DB, cfg config.Config, registry TemplateSaver) *SyncService {
	return &SyncService{db: db, client: NewClient(cfg), registry: registry}
}

type SyncResult struct {
	Fetched int
	Saved   int
	Skipped []string
}

// Sync pulls the catalog and saves every template into the registry. Remote
// entries overwrite user templates and builtins with the same id. Templates
// the registry rejects are skipped.
func (s *SyncService) Sync(ctx context.Context) (SyncResult, error) {
	remote, err := s.client.FetchTemplates(ctx)
	if err != nil {
		return SyncResult{}, errors.Wrap(err, "fetch catalog")
	}

	res := SyncResult{Fetched: len(remote)}
	for _, tpl := range remote {
		if err := s.registry.Save(ctx, tpl.ID, tpl); err != nil {
			log.L.WithField("template", tpl.ID).WithError(err).Warnf("catalog template skipped")
			res.Skipped = append(res.Skipped, tpl.ID)
			continue
		}
		res.Saved++
	}

	if err := s.db.SetMetadata(lastSyncKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return res, err
	}
	log.L.WithFields(log.Fields{"fetched": res.Fetched, "saved": res.Saved, "skipped": len(res.Skipped)}).Info("template catalog synced")
	return res, nil
}

// LastSync returns when Sync last completed, or nil if it never ran.
func (s *SyncService) LastSync() (*time.Time, error) {
	raw, err := s.db.GetMetadata(lastSyncKey)
	if err != nil || raw == nil {
		return nil, err
	}
	parsed, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		return nil, nil
	}
	return &parsed, nil
}
