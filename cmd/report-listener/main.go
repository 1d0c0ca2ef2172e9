package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"campaignmap/internal/config"
	"campaignmap/internal/listener"
	"campaignmap/internal/log"
	"campaignmap/internal/pipeline"
	"campaignmap/internal/storage"
	"campaignmap/internal/templates"
)

func main() {
	cfg, err := config.Load()
	must(err)
	log.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	store, closeStore, err := templates.OpenStore(ctx, cfg, db)
	must(err)
	defer closeStore()

	importer := pipeline.NewImportService(db, cfg, templates.NewRegistry(ctx, store))
	svc := listener.NewService(db, cfg, importer)
	log.L.WithFields(log.Fields{"provider": cfg.ReportListenerProvider, "label": cfg.ReportListenerLabel}).Info("report listener started")
	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
