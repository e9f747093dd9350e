package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Recognizer turns raw image bytes into the dominant recognized text block.
// A blank Text means no text was found; that is not an error at this level.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (Result, error)
}

type Result struct {
	Text       string
	Method     string // "tesseract" | "vision"
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

type Config struct {
	Provider string // "vision" | "tesseract"

	Tesseract           string // binary name or absolute path; if empty -> "tesseract"
	TesseractLang       string // default "por"
	TessdataDir         string
	EnableTSVConfidence bool
	PSM                 int // e.g., 6 is good for uniform block of text
	OEM                 int // 1 = LSTM; leave 0 to use default

	VisionAPIKey  string
	VisionURL     string // default https://vision.googleapis.com/v1/images:annotate
	LanguageHints []string
}

// New builds the recognizer selected by cfg.Provider.
func New(cfg Config, client *http.Client, logger *slog.Logger) (Recognizer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "vision":
		return NewVisionClient(cfg, client, logger), nil
	case "tesseract":
		return NewTesseract(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown ocr provider %q", cfg.Provider)
	}
}

// imageExt sniffs the image type so helpers that go by extension are happy.
func imageExt(b []byte) string {
	switch http.DetectContentType(b) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/bmp":
		return ".bmp"
	default:
		return ".jpg"
	}
}
