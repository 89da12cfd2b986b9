package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"LedgerSentinel/internal/analysis"
	"LedgerSentinel/internal/config"
	"LedgerSentinel/internal/ingest"
	"LedgerSentinel/internal/load"
	"LedgerSentinel/internal/model"
	"LedgerSentinel/internal/scheduler"
	"LedgerSentinel/internal/warehouse"
)

const usage = `usage: sentinel <command> [flags]

commands:
  validate  -file F [-type T] [-mois M -annee A]   validate a tabular file
  upload    -file F -type T -mois M -annee A       register an artifact
  load      -mois M -annee A [-type T]             load a period into the warehouse
  analyze   -mois M -annee A                       run anomaly and alert rules
  summary   -mois M -annee A                       print the monthly summary
  alert     -id N -status ack|closed               update an alert's status
  watch                                            run load+analyze on a cron schedule
`

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	store, err := warehouse.Open(cfg.Database.SQLitePath)
	if err != nil {
		log.Fatalf("[FATAL] open warehouse: %v", err)
	}
	defer store.Close()

	if err := run(os.Args[1], os.Args[2:], cfg, store); err != nil {
		log.Fatalf("[FATAL] %s: %v", os.Args[1], err)
	}
}

func run(command string, args []string, cfg *config.Config, store *warehouse.Store) error {
	switch command {
	case "validate":
		return cmdValidate(args, cfg, store)
	case "upload":
		return cmdUpload(args, cfg, store)
	case "load":
		return cmdLoad(args, cfg, store)
	case "analyze":
		return cmdAnalyze(args, cfg, store)
	case "summary":
		return cmdSummary(args, store)
	case "alert":
		return cmdAlert(args, store)
	case "watch":
		return cmdWatch(cfg, store)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func cmdValidate(args []string, cfg *config.Config, store *warehouse.Store) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	file := fs.String("file", "", "path to the tabular file")
	typ := fs.String("type", "", "declared file type (optional)")
	mois := fs.String("mois", "", "French month name (optional, enables dedup check)")
	annee := fs.Int("annee", 0, "year")
	fs.Parse(args)
	if *file == "" {
		return fmt.Errorf("-file is required")
	}

	opts := ingest.Options{PreviewRows: cfg.Ingest.PreviewRows, SampleLimit: cfg.Ingest.SampleLimit}
	report, err := ingest.Preview(*file, *typ, *mois, *annee, store, opts)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func cmdUpload(args []string, cfg *config.Config, store *warehouse.Store) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	file := fs.String("file", "", "path to the tabular file")
	typ := fs.String("type", "", "declared file type")
	mois := fs.String("mois", "", "French month name")
	annee := fs.Int("annee", 0, "year")
	by := fs.String("by", "cli", "uploader name")
	fs.Parse(args)
	if *file == "" || *typ == "" || *mois == "" || *annee == 0 {
		return fmt.Errorf("-file, -type, -mois and -annee are required")
	}

	artifact, err := ingest.Register(store, *file, filepath.Base(*file), *typ, *mois, *annee, *by, cfg.Upload.Dir)
	if err != nil {
		return err
	}
	return printJSON(artifact)
}

func cmdLoad(args []string, cfg *config.Config, store *warehouse.Store) error {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	mois := fs.String("mois", "", "French month name")
	annee := fs.Int("annee", 0, "year")
	typ := fs.String("type", "", "file type filter (optional)")
	fs.Parse(args)
	if *mois == "" || *annee == 0 {
		return fmt.Errorf("-mois and -annee are required")
	}

	loader := load.NewLoader(store, cfg.Upload.Dir)
	summary, err := loader.LoadMonth(*annee, *mois, *typ)
	if err != nil {
		return err
	}
	return printJSON(summary)
}

func cmdAnalyze(args []string, cfg *config.Config, store *warehouse.Store) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	mois := fs.String("mois", "", "French month name")
	annee := fs.Int("annee", 0, "year")
	fs.Parse(args)
	if *mois == "" || *annee == 0 {
		return fmt.Errorf("-mois and -annee are required")
	}

	orch := analysis.NewOrchestrator(store, cfg.Thresholds)
	res, err := orch.Run(*annee, *mois)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func cmdSummary(args []string, store *warehouse.Store) error {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	mois := fs.String("mois", "", "French month name")
	annee := fs.Int("annee", 0, "year")
	fs.Parse(args)
	if *mois == "" || *annee == 0 {
		return fmt.Errorf("-mois and -annee are required")
	}

	summary, err := analysis.Summarize(store, *annee, *mois)
	if err != nil {
		return err
	}
	return printJSON(summary)
}

func cmdAlert(args []string, store *warehouse.Store) error {
	fs := flag.NewFlagSet("alert", flag.ExitOnError)
	id := fs.Int64("id", 0, "alert id")
	status := fs.String("status", "", "new status: ack or closed")
	fs.Parse(args)
	if *id == 0 || *status == "" {
		return fmt.Errorf("-id and -status are required")
	}

	to := model.AlertStatus(*status)
	if to != model.AlertAck && to != model.AlertClosed {
		return fmt.Errorf("statut invalide: %q (attendu: ack ou closed)", *status)
	}
	if err := store.UpdateAlertStatus(*id, to); err != nil {
		return err
	}
	log.Printf("[INFO] alert %d -> %s", *id, to)
	return nil
}

func cmdWatch(cfg *config.Config, store *warehouse.Store) error {
	if cfg.Schedule.AnalysisCron == "" {
		return fmt.Errorf("schedule.analysis_cron is empty")
	}

	loader := load.NewLoader(store, cfg.Upload.Dir)
	orch := analysis.NewOrchestrator(store, cfg.Thresholds)

	sched := scheduler.NewScheduler(loader, orch)
	if err := sched.Register(cfg.Schedule.AnalysisCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing analysis now")
		go sched.RunNow()
	}

	log.Println("[INFO] LedgerSentinel watching. Press Ctrl+C to stop.")
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("[INFO] shutdown signal received, stopping...")
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
