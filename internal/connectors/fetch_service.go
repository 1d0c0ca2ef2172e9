package connectors

import (
	"context"

	"campaignmap/internal/log"
	"campaignmap/internal/storage"
)

type FetchService struct {
	db        *storage.DB
	connector MailConnector
	store     *MailStoreService
}

type FetchResult struct {
	Fetched int
	Stored  int
	Known   int
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector) *FetchService {
	return &FetchService{
		db:        db,
		connector: connector,
		store:     NewMailStoreService(db, rawMailDir),
	}
}

// FetchAndStore saves new messages as fetched report emails. Messages already
// recorded for the provider are counted as known and left untouched, so an
// email is never queued for processing twice.
func (s *FetchService) FetchAndStore(ctx context.Context, label string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(ctx, label, max)
	if err != nil {
		return FetchResult{}, err
	}

	res := FetchResult{Fetched: len(messages)}
	for _, msg := range messages {
		existing, err := s.db.GetReportEmailByProviderMessageID(msg.Provider, msg.MessageID)
		if err != nil {
			return res, err
		}
		if existing != nil {
			res.Known++
			continue
		}
		if _, err := s.store.Store(msg); err != nil {
			return res, err
		}
		res.Stored++
	}

	log.L.WithFields(log.Fields{"label": label, "fetched": res.Fetched, "stored": res.Stored, "known": res.Known}).Info("mailbox fetched")
	return res, nil
}
