package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Tesseract runs the tesseract CLI on a temp copy of the image.
type Tesseract struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewTesseract(cfg Config, logger *slog.Logger) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "por"
	}
	return &Tesseract{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

func (t *Tesseract) Recognize(ctx context.Context, image []byte) (Result, error) {
	start := time.Now()
	res := Result{Method: "tesseract", Language: t.cfg.TesseractLang}

	f, err := os.CreateTemp("", "vagas-ocr-*"+imageExt(image))
	if err != nil {
		return res, fmt.Errorf("temp image: %w", err)
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil {
			t.logger.Warn("ocr.tesseract.cleanup_error", "path", path, "error", err)
		}
	}()
	if _, err := f.Write(image); err != nil {
		_ = f.Close()
		return res, fmt.Errorf("write temp image: %w", err)
	}
	if err := f.Close(); err != nil {
		return res, fmt.Errorf("close temp image: %w", err)
	}

	txt, warn, err := t.text(ctx, path)
	res.Warnings = append(res.Warnings, warn...)
	if err != nil {
		res.Duration = time.Since(start)
		return res, err
	}
	res.Text = Normalize(txt)

	var ocrConf float32
	if t.cfg.EnableTSVConfidence {
		if c, w, err := t.tsvConfidence(ctx, path); err == nil {
			ocrConf = c
			res.Warnings = append(res.Warnings, w...)
		} else {
			res.Warnings = append(res.Warnings, err.Error())
		}
	}
	heurConf := heuristicConfidence(res.Text)

	// blend: weight OCR higher if present
	if ocrConf > 0 {
		res.Confidence = 0.7*ocrConf + 0.3*heurConf
	} else {
		res.Confidence = heurConf
	}
	if res.Confidence > 1.0 {
		res.Confidence = 1.0
	}
	res.Duration = time.Since(start)

	t.logger.Info("ocr.tesseract.ok",
		"text_len", len(res.Text),
		"confidence", res.Confidence,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (t *Tesseract) baseArgs(path string) []string {
	// tesseract <file> stdout -l <lang>
	args := []string{path, "stdout", "-l", t.cfg.TesseractLang}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.cfg.OEM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	return args
}

func (t *Tesseract) text(ctx context.Context, path string) (string, []string, error) {
	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, t.baseArgs(path)...)
	if err != nil {
		return "", []string{string(errb)}, fmt.Errorf("tesseract: %w", err)
	}
	// minor cleanup of obvious line noise
	return reBoxNoise.ReplaceAllString(string(out), ""), nil, nil
}

// tsvConfidence runs tesseract in TSV mode and returns mean word conf in 0..1.
func (t *Tesseract) tsvConfidence(ctx context.Context, path string) (float32, []string, error) {
	args := append(t.baseArgs(path), "tsv")
	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, args...)
	if err != nil {
		return 0, []string{string(errb)}, fmt.Errorf("tesseract TSV: %w", err)
	}
	// columns: level page block par line word left top width height conf text
	var sum, n float64
	for i, ln := range strings.Split(string(out), "\n") {
		if i == 0 || len(ln) == 0 {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := strings.TrimSpace(cols[10])
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, nil, nil
	}
	return float32(sum / n / 100.0), nil, nil
}
