package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/gustavoludtke/vagasbot/internal/common"
	"github.com/gustavoludtke/vagasbot/internal/core"
	"github.com/gustavoludtke/vagasbot/internal/export"
	"github.com/gustavoludtke/vagasbot/internal/ingest"
	"github.com/gustavoludtke/vagasbot/internal/present"
)

const usage = `usage: vagasctl <command> [flags]

commands:
  extract <image>                  run OCR and extraction, print the job JSON
  pending                          list vagas waiting for moderation
  decide -id N -approve|-reject    approve or reject a vaga
  export -out file.xlsx [-journal] write pending vagas (or the journal) to XLSX
  ingest -dir D [-submit]          extract every image under D
`

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	if len(os.Args) < 2 {
		printError(usage)
		os.Exit(2)
	}
	cfg := common.LoadConfig()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "extract":
		err = runExtract(ctx, cfg, logger, args)
	case "pending":
		err = runPending(ctx, cfg, logger)
	case "decide":
		err = runDecide(ctx, cfg, logger, args)
	case "export":
		err = runExport(ctx, cfg, logger, args)
	case "ingest":
		err = runIngest(ctx, cfg, logger, args)
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		printError("unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		printError("Error [%s]: %v\n", common.Code(err), err)
		os.Exit(1)
	}
}

func runExtract(ctx context.Context, cfg *common.Config, logger *slog.Logger, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("extract needs exactly one image path")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	p, err := core.BuildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	image, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	job, err := p.Extract(ctx, image)
	if err != nil && !errors.Is(err, common.ErrMalformedExtraction) {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(job); encErr != nil {
		return encErr
	}
	return err
}

func runPending(ctx context.Context, cfg *common.Config, logger *slog.Logger) error {
	if err := cfg.ValidateStore(); err != nil {
		return err
	}
	jobs, err := core.BuildStore(cfg, logger).ListPending(ctx)
	if err != nil {
		return err
	}
	for _, m := range present.Pending(jobs) {
		fmt.Println(m.Text)
		fmt.Println()
	}
	return nil
}

func runDecide(ctx context.Context, cfg *common.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("decide", flag.ContinueOnError)
	id := fs.Int64("id", 0, "vaga id (required)")
	approve := fs.Bool("approve", false, "approve the vaga")
	reject := fs.Bool("reject", false, "reject the vaga")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 || *approve == *reject {
		return fmt.Errorf("decide needs -id N and exactly one of -approve or -reject")
	}
	if err := cfg.ValidateStore(); err != nil {
		return err
	}
	msg, err := core.BuildStore(cfg, logger).Decide(ctx, *id, *approve)
	switch {
	case errors.Is(err, common.ErrAlreadyDecided):
		fmt.Println(present.AlreadyDecided(*id, false)[0].Text)
		return nil
	case err != nil:
		return err
	}
	fmt.Println(present.Decided(*id, *approve, msg, false)[0].Text)
	return nil
}

func runExport(ctx context.Context, cfg *common.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	out := fs.String("out", "vagas.xlsx", "output XLSX file path")
	fromJournal := fs.Bool("journal", false, "export the journal instead of pending vagas")
	limit := fs.Int("limit", 1000, "journal rows per sheet")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var data []byte
	if *fromJournal {
		journal, db, err := core.OpenJournal(ctx, cfg, logger)
		if err != nil {
			return err
		}
		if journal == nil {
			return fmt.Errorf("JOURNAL_DSN is not set")
		}
		defer db.Close()
		data, err = export.NewService(nil, journal, logger).JournalXLSX(ctx, *limit)
		if err != nil {
			return err
		}
	} else {
		if err := cfg.ValidateStore(); err != nil {
			return err
		}
		var err error
		data, err = export.NewService(core.BuildStore(cfg, logger), nil, logger).PendingXLSX(ctx)
		if err != nil {
			return err
		}
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d bytes)\n", *out, len(data))
	return nil
}

func runIngest(ctx context.Context, cfg *common.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	dir := fs.String("dir", "", "directory of flyer images (required)")
	submit := fs.Bool("submit", false, "submit each extracted vaga to the content store")
	skipHidden := fs.Bool("skip-hidden", true, "skip dot files and directories")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dir == "" {
		return fmt.Errorf("ingest needs -dir")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	p, err := core.BuildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	var ing *ingest.Ingestor
	if *submit {
		if err := cfg.ValidateStore(); err != nil {
			return err
		}
		ing = ingest.NewIngestor(p, core.BuildStore(cfg, logger), logger)
	} else {
		ing = ingest.NewIngestor(p, nil, logger)
	}

	results, stats, err := ing.IngestDirectory(ctx, *dir, ingest.Options{SkipHidden: *skipHidden, Submit: *submit})
	for _, r := range results {
		switch {
		case r.Err != "":
			fmt.Printf("FAIL  %s  %s\n", r.Path, r.Err)
		case r.Duplicate:
			fmt.Printf("DUP   %s\n", r.Path)
		case r.VagaID != 0:
			fmt.Printf("OK    %s  vaga %d  %s\n", r.Path, r.VagaID, r.Job.Title)
		default:
			fmt.Printf("OK    %s  %s\n", r.Path, r.Job.Title)
		}
	}
	fmt.Printf("\nmatched=%d ok=%d submitted=%d duplicates=%d failed=%d\n",
		stats.Matched, stats.Succeeded, stats.Submitted, stats.Duplicates, stats.Failed)
	return err
}
