package core

import (
	"context"
	"testing"

	"github.com/gustavoludtke/vagasbot/internal/common"
	"github.com/gustavoludtke/vagasbot/internal/events"
)

func TestBuildPipelineRegexTesseract(t *testing.T) {
	cfg := common.LoadConfig()
	cfg.OCR.Provider = "tesseract"
	cfg.Extraction.Strategy = "regex"
	p, err := BuildPipeline(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.OCR == nil || p.Parse == nil {
		t.Fatal("stages not wired")
	}
}

func TestBuildPipelineRejectsUnknown(t *testing.T) {
	cfg := common.LoadConfig()
	cfg.OCR.Provider = "paddle"
	if _, err := BuildPipeline(cfg, nil); err == nil {
		t.Error("unknown OCR provider accepted")
	}
	cfg.OCR.Provider = "tesseract"
	cfg.Extraction.Strategy = "magic"
	if _, err := BuildPipeline(cfg, nil); err == nil {
		t.Error("unknown strategy accepted")
	}
}

func TestOpenJournal(t *testing.T) {
	cfg := common.LoadConfig()
	cfg.Journal.DSN = ""
	j, db, err := OpenJournal(context.Background(), cfg, nil)
	if err != nil || j != nil || db != nil {
		t.Fatalf("empty dsn: %v %v %v", j, db, err)
	}

	cfg.Journal.DSN = ":memory:"
	j, db, err = OpenJournal(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := j.List(context.Background(), 10); err != nil {
		t.Errorf("List on migrated journal: %v", err)
	}
}

func TestBuildPublisherWithoutNATS(t *testing.T) {
	cfg := common.LoadConfig()
	cfg.Events.NATSURL = ""
	pub, err := BuildPublisher(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := pub.(events.NopPublisher); !ok {
		t.Errorf("publisher = %T", pub)
	}
}
