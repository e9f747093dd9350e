// Package ingest runs flyer images from the local filesystem through the
// extraction pipeline, optionally submitting each one.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gustavoludtke/vagasbot/constants"
	"github.com/gustavoludtke/vagasbot/internal/common"
	"github.com/gustavoludtke/vagasbot/internal/entity"
	"github.com/gustavoludtke/vagasbot/internal/pipeline"
)

type Extractor interface {
	Run(ctx context.Context, image []byte) (pipeline.Result, error)
}

type Submitter interface {
	Submit(ctx context.Context, job entity.ExtractedJob) (int64, error)
}

// FileResult is the per-file outcome.
type FileResult struct {
	Path    string
	HashHex string
	Job     *entity.ExtractedJob
	VagaID  int64
	// Duplicate is set when an earlier file in the same run had the same bytes.
	Duplicate bool
	Code      string
	Err       string
}

// DirStats summarizes a directory run.
type DirStats struct {
	Scanned    uint32
	Matched    uint32
	Succeeded  uint32
	Submitted  uint32
	Duplicates uint32
	Failed     uint32
}

type Options struct {
	SkipHidden bool
	// Submit sends every extracted job to the store. Duplicates are never resubmitted.
	Submit bool
}

type Ingestor struct {
	extractor Extractor
	store     Submitter
	logger    *slog.Logger
}

// NewIngestor builds an ingestor. store may be nil when nothing is submitted.
func NewIngestor(extractor Extractor, store Submitter, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{extractor: extractor, store: store, logger: logger}
}

// IngestPath extracts one image and submits it when submit is set.
func (i *Ingestor) IngestPath(ctx context.Context, path string, submit bool) (FileResult, error) {
	out := FileResult{Path: path}
	if !constants.IsImageExt(filepath.Ext(path)) {
		return out, fmt.Errorf("unsupported extension %q", filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return out, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) > constants.MaxImageBytes {
		return out, fmt.Errorf("%s: image larger than %d bytes", path, constants.MaxImageBytes)
	}
	sum := sha256.Sum256(data)
	out.HashHex = hex.EncodeToString(sum[:])
	return i.process(ctx, out, data, submit)
}

func (i *Ingestor) process(ctx context.Context, out FileResult, data []byte, submit bool) (FileResult, error) {
	start := time.Now()
	res, err := i.extractor.Run(ctx, data)
	if err != nil {
		out.Code = common.Code(err)
		if errors.Is(err, common.ErrMalformedExtraction) {
			job := res.Job
			out.Job = &job
		}
		return out, err
	}
	job := res.Job
	out.Job = &job

	if submit {
		if i.store == nil {
			return out, errors.New("submit requested without a content store")
		}
		id, err := i.store.Submit(ctx, job)
		if err != nil {
			out.Code = common.Code(err)
			return out, err
		}
		out.VagaID = id
	}
	i.logger.Info("ingest.file.ok",
		"path", out.Path,
		"hash", out.HashHex,
		"vaga_id", out.VagaID,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// IngestDirectory walks root and handles every image file it finds. Per-file
// failures are recorded and the walk continues.
func (i *Ingestor) IngestDirectory(ctx context.Context, root string, opts Options) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []FileResult
	var stats DirStats
	seen := map[string]string{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if opts.SkipHidden && path != root && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !constants.IsImageExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		data, err := os.ReadFile(path)
		if err != nil {
			results = append(results, FileResult{Path: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		sum := sha256.Sum256(data)
		r := FileResult{Path: path, HashHex: hex.EncodeToString(sum[:])}
		if first, ok := seen[r.HashHex]; ok {
			i.logger.Info("ingest.file.duplicate", "path", path, "first", first)
			r.Duplicate = true
			results = append(results, r)
			stats.Duplicates++
			return nil
		}
		seen[r.HashHex] = path

		r, err = i.process(ctx, r, data, opts.Submit)
		if err != nil {
			i.logger.Warn("ingest.file.failed", "path", path, "code", r.Code, "error", err)
			r.Err = err.Error()
			results = append(results, r)
			stats.Failed++
			return nil
		}
		results = append(results, r)
		stats.Succeeded++
		if r.VagaID != 0 {
			stats.Submitted++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	i.logger.Info("ingest.dir.done",
		"root", root,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"submitted", stats.Submitted,
		"duplicates", stats.Duplicates,
		"failed", stats.Failed,
	)
	return results, stats, nil
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
