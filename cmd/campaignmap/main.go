package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"campaignmap/internal"
	"campaignmap/internal/catalog"
	"campaignmap/internal/config"
	"campaignmap/internal/connectors"
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

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	store, closeStore, err := templates.OpenStore(ctx, cfg, db)
	must(err)
	defer closeStore()
	registry := templates.NewRegistry(ctx, store)
	importer := pipeline.NewImportService(db, cfg, registry)

	cmd := os.Args[1]
	switch cmd {
	case "import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		var files stringList
		fs.Var(&files, "file", "csv/xlsx/html export (repeatable)")
		mapFlag := fs.String("map", "", "field=Header,... used instead of prompting")
		yes := fs.Bool("yes", false, "accept the proposed mapping without prompting")
		_ = fs.Parse(os.Args[2:])
		files = append(files, fs.Args()...)
		if len(files) == 0 {
			must(fmt.Errorf("--file is required"))
		}

		var confirmer pipeline.Confirmer = newPromptConfirmer(os.Stdin, os.Stdout)
		if strings.TrimSpace(*mapFlag) != "" || *yes {
			mapping, err := parseMapping(*mapFlag)
			must(err)
			confirmer = pipeline.StaticConfirmer{Mapping: mapping, AcceptCandidate: *yes}
		}

		failed := 0
		for _, res := range importer.ImportPaths(ctx, files, confirmer) {
			if res.Err != nil {
				failed++
				fmt.Printf("%s: %s (%v)\n", res.Filename, res.Status, res.Err)
				continue
			}
			fmt.Printf("%s: %s crm=%s template=%s imported=%d dropped=%d\n", res.Filename, res.Status, res.CRM, orDash(res.TemplateID), res.Imported, res.Dropped)
		}
		if failed > 0 {
			os.Exit(1)
		}
	case "detect":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "file to inspect")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		table, err := pipeline.ParseFile(*file)
		must(err)
		proposal := importer.Mapper().Propose(table.Headers, table.Sample(cfg.SampleSize))
		fmt.Printf("rows=%d sheet=%s\n", len(table.Rows), orDash(table.Sheet))
		printProposal(os.Stdout, proposal)
		fmt.Println("template scores:")
		for _, s := range importer.Mapper().Matcher().Score(table.Headers) {
			fmt.Printf("  %-14s %d/%d (%.2f)\n", s.ID, s.Matched, s.Total, s.Ratio)
		}
	case "templates:list":
		for _, tpl := range registry.List() {
			fmt.Printf("%-16s %-16s fields=%d\n", tpl.ID, tpl.DisplayName, len(tpl.FieldMapping))
		}
	case "templates:show":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("id", "", "template id")
		_ = fs.Parse(os.Args[2:])
		blob, err := registry.Export(*id)
		must(err)
		fmt.Println(string(blob))
	case "templates:save":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("id", "", "template id")
		name := fs.String("name", "", "display name")
		mapFlag := fs.String("map", "", "field=Header,...")
		_ = fs.Parse(os.Args[2:])
		mapping, err := parseMapping(*mapFlag)
		must(err)
		must(registry.Save(ctx, *id, internal.Template{DisplayName: *name, FieldMapping: mapping}))
		fmt.Printf("template saved id=%s fields=%d\n", *id, len(mapping))
	case "templates:delete":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("id", "", "template id")
		_ = fs.Parse(os.Args[2:])
		must(registry.Delete(ctx, *id))
		fmt.Printf("template deleted id=%s\n", *id)
	case "templates:export":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("id", "", "template id")
		format := fs.String("format", "json", "json|yaml")
		out := fs.String("out", "", "output path (default stdout)")
		_ = fs.Parse(os.Args[2:])
		var blob []byte
		switch strings.ToLower(*format) {
		case "json":
			blob, err = registry.Export(*id)
		case "yaml", "yml":
			blob, err = registry.ExportYAML(*id)
		default:
			err = fmt.Errorf("unsupported format: %s", *format)
		}
		must(err)
		if strings.TrimSpace(*out) == "" {
			fmt.Println(string(blob))
			return
		}
		must(os.MkdirAll(filepath.Dir(*out), 0o755))
		must(os.WriteFile(*out, blob, 0o644))
		fmt.Printf("template %s exported to %s\n", *id, *out)
	case "templates:import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "json or yaml export")
		_ = fs.Parse(os.Args[2:])
		blob, err := os.ReadFile(*file)
		must(err)
		id, err := registry.Import(ctx, blob)
		must(err)
		fmt.Printf("template imported id=%s\n", id)
	case "templates:sync":
		svc := catalog.NewSyncService(db, cfg, registry)
		res, err := svc.Sync(ctx)
		must(err)
		fmt.Printf("catalog sync done fetched=%d saved=%d skipped=%s\n", res.Fetched, res.Saved, orDash(strings.Join(res.Skipped, ",")))
		last, err := svc.LastSync()
		must(err)
		if last != nil {
			fmt.Printf("last sync %s\n", last.Format(time.RFC3339))
		}
	case "imports:list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		status := fs.String("status", "", "completed|needs_mapping|failed")
		limit := fs.Int("limit", 50, "max imports")
		_ = fs.Parse(os.Args[2:])
		imports, err := db.ListImports(*limit)
		must(err)
		shown := 0
		for _, rec := range imports {
			if *status != "" && string(rec.Status) != *status {
				continue
			}
			fmt.Println(importLine(rec))
			shown++
		}
		fmt.Printf("%d imports\n", shown)
	case "campaigns:list":
		filter, limit := campaignFilter(cmd)
		campaigns, err := db.ListCampaigns(filter)
		must(err)
		for i, c := range campaigns {
			if limit > 0 && i >= limit {
				break
			}
			fmt.Printf("%s  %-40s %-12s %-10s sent=%.0f open=%.2f%% ctr=%.2f%% conv=%.0f revenue=%.2f\n",
				orDash(dayOf(c)), c.Name, c.CRM, c.Type, c.Sent, c.OpenRate, c.ClickRate, c.Conversions, c.Revenue)
		}
		fmt.Printf("%d campaigns\n", len(campaigns))
	case "campaigns:clear":
		deleted, err := db.ClearCampaigns()
		must(err)
		fmt.Printf("deleted %d campaigns\n", deleted)
	case "export:xlsx", "export:csv":
		ext := ".csv"
		if cmd == "export:xlsx" {
			ext = ".xlsx"
		}
		filter, out := exportFlags(cmd, filepath.Join(cfg.OutputDir, "campaigns"+ext))
		campaigns, err := db.ListCampaigns(filter)
		must(err)
		if cmd == "export:xlsx" {
			must(pipeline.ExportCampaignsToXLSX(campaigns, out))
		} else {
			must(pipeline.ExportCampaignsToCSV(campaigns, out))
		}
		fmt.Printf("exported %d campaigns to %s\n", len(campaigns), out)
	case "report":
		filter, _ := campaignFilter(cmd)
		campaigns, err := db.ListCampaigns(filter)
		must(err)
		for _, m := range pipeline.SummarizeByMonth(campaigns) {
			fmt.Printf("%s campaigns=%d sent=%.0f conversions=%.0f revenue=%.2f open=%.2f%% ctr=%.2f%%\n",
				m.Month, m.Campaigns, m.Sent, m.Conversions, m.Revenue, m.AvgOpenRate, m.AvgClickRate)
		}
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.ReportListenerProvider, "gmail|imap")
		label := fs.String("label", cfg.ReportListenerLabel, "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := listener.NewConnector(ctx, cfg, strings.ToLower(strings.TrimSpace(*provider)))
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn)
		result, err := fetch.FetchAndStore(ctx, *label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d known=%d\n", *provider, result.Fetched, result.Stored, result.Known)
	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.ReportListenerProvider, "gmail|imap")
		messageID := fs.String("messageId", "", "specific message-id")
		emailID := fs.Int("id", 0, "stored email id")
		batch := fs.Int("batch", cfg.ReportListenerProcessBatch, "batch size")
		_ = fs.Parse(os.Args[2:])
		processor := pipeline.NewReportProcessingService(db, importer)
		if *emailID > 0 {
			email, err := db.GetReportEmailByID(*emailID)
			must(err)
			if email == nil {
				must(fmt.Errorf("report email %d not found", *emailID))
			}
			res, err := processor.ProcessEmail(ctx, *email)
			must(err)
			fmt.Printf("processed email id=%d status=%s imported=%d\n", res.EmailID, res.Status, res.Imported)
			return
		}
		if strings.TrimSpace(*messageID) != "" {
			res, err := processor.ProcessByProviderMessageID(ctx, *provider, *messageID)
			must(err)
			fmt.Printf("processed email id=%d status=%s imported=%d\n", res.EmailID, res.Status, res.Imported)
			return
		}
		processedEmails, imported, err := processor.ProcessPending(ctx, *batch, *provider)
		must(err)
		fmt.Printf("processed pending emails=%d imported=%d\n", processedEmails, imported)
	case "mail:listen":
		s := listener.NewService(db, cfg, importer)
		must(s.Run(ctx))
	default:
		usage()
		os.Exit(1)
	}
}

func campaignFilter(cmd string) (internal.CampaignFilter, int) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	crm := fs.String("crm", "", "CRM label")
	campaignType := fs.String("type", "", "email|automation|sms")
	search := fs.String("search", "", "substring of name or CRM")
	days := fs.Int("days", 0, "only campaigns from the last N days")
	limit := fs.Int("limit", 0, "max rows to print")
	_ = fs.Parse(os.Args[2:])
	return buildFilter(*crm, *campaignType, *search, *days, time.Now()), *limit
}

func exportFlags(cmd, defaultOut string) (internal.CampaignFilter, string) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	crm := fs.String("crm", "", "CRM label")
	days := fs.Int("days", 0, "only campaigns from the last N days")
	out := fs.String("out", defaultOut, "output path")
	_ = fs.Parse(os.Args[2:])
	return buildFilter(*crm, "", "", *days, time.Now()), *out
}

func buildFilter(crm, campaignType, search string, days int, now time.Time) internal.CampaignFilter {
	filter := internal.CampaignFilter{
		CRM:    strings.TrimSpace(crm),
		Type:   internal.CampaignType(strings.ToLower(strings.TrimSpace(campaignType))),
		Search: search,
	}
	if days > 0 {
		y, m, d := now.AddDate(0, 0, -days).Date()
		since := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		filter.Since = &since
	}
	return filter
}

func importLine(rec internal.ImportRecord) string {
	template := "-"
	if rec.TemplateID != nil {
		template = *rec.TemplateID
	}
	return fmt.Sprintf("%s  %-14s %-30s crm=%s template=%s rows=%d imported=%d dropped=%d",
		rec.CreatedAt, rec.Status, rec.Filename, orDash(rec.CRM), template, rec.RowCount, rec.Imported, rec.Dropped)
}

func dayOf(c internal.Campaign) string {
	if c.Date.IsZero() {
		return c.RawDate
	}
	return c.Date.Format("2006-01-02")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func usage() {
	fmt.Println("usage: campaignmap <command>")
	fmt.Println("commands:")
	fmt.Println("  import --file=report.csv [--file=...] [--map campaignName=Header,...] [--yes]")
	fmt.Println("  detect --file=report.xlsx")
	fmt.Println("  templates:list")
	fmt.Println("  templates:show --id=edrone")
	fmt.Println("  templates:save --id=klaviyo --name=Klaviyo --map campaignName=Campaign,date=Send Date,sent=Recipients")
	fmt.Println("  templates:delete --id=klaviyo")
	fmt.Println("  templates:export --id=edrone [--format=json|yaml] [--out=path]")
	fmt.Println("  templates:import --file=template.yaml")
	fmt.Println("  templates:sync")
	fmt.Println("  campaigns:list [--crm=Edrone] [--type=email|automation|sms] [--search=...] [--days=30] [--limit=50]")
	fmt.Println("  campaigns:clear")
	fmt.Println("  imports:list [--status=needs_mapping] [--limit=50]")
	fmt.Println("  export:xlsx [--out=./out/campaigns.xlsx] [--crm=...] [--days=...]")
	fmt.Println("  export:csv [--out=./out/campaigns.csv] [--crm=...] [--days=...]")
	fmt.Println("  report [--crm=...] [--days=...]")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  mail:process --provider=gmail|imap [--messageId=...|--id=N] [--batch=20]")
	fmt.Println("  mail:listen")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
