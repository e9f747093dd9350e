package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const defaultVisionURL = "https://vision.googleapis.com/v1/images:annotate"

// VisionClient calls Google Cloud Vision TEXT_DETECTION over REST.
type VisionClient struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewVisionClient(cfg Config, client *http.Client, logger *slog.Logger) *VisionClient {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.VisionURL == "" {
		cfg.VisionURL = defaultVisionURL
	}
	if len(cfg.LanguageHints) == 0 {
		cfg.LanguageHints = []string{"pt"}
	}
	return &VisionClient{cfg: cfg, http: client, logger: logger}
}

type visionRequest struct {
	Requests []visionImageRequest `json:"requests"`
}

type visionImageRequest struct {
	Image struct {
		Content string `json:"content"`
	} `json:"image"`
	Features     []visionFeature `json:"features"`
	ImageContext struct {
		LanguageHints []string `json:"languageHints,omitempty"`
	} `json:"imageContext"`
}

type visionFeature struct {
	Type string `json:"type"`
}

type visionResponse struct {
	Responses []struct {
		TextAnnotations []struct {
			Description string `json:"description"`
			Locale      string `json:"locale"`
		} `json:"textAnnotations"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"responses"`
}

// Recognize returns the first text annotation, which Vision fills with the
// whole detected block.
func (c *VisionClient) Recognize(ctx context.Context, image []byte) (Result, error) {
	start := time.Now()
	res := Result{Method: "vision"}

	var ir visionImageRequest
	ir.Image.Content = base64.StdEncoding.EncodeToString(image)
	ir.Features = []visionFeature{{Type: "TEXT_DETECTION"}}
	ir.ImageContext.LanguageHints = c.cfg.LanguageHints
	body, err := json.Marshal(visionRequest{Requests: []visionImageRequest{ir}})
	if err != nil {
		return res, fmt.Errorf("encode vision request: %w", err)
	}

	endpoint := c.cfg.VisionURL
	if c.cfg.VisionAPIKey != "" {
		endpoint += "?key=" + url.QueryEscape(c.cfg.VisionAPIKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return res, fmt.Errorf("build vision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Info("ocr.vision.request", "image_bytes", len(image))
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("ocr.vision.send_error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return res, fmt.Errorf("vision: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warn("ocr.vision.response_body_close_error", "error", err)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		c.logger.Error("ocr.vision.status", "status", resp.StatusCode, "body", truncate(string(raw), 2<<10))
		return res, fmt.Errorf("vision status %d: %s", resp.StatusCode, truncate(string(raw), 512))
	}

	var vr visionResponse
	if err := json.Unmarshal(raw, &vr); err != nil {
		return res, fmt.Errorf("decode vision response: %w", err)
	}
	res.Duration = time.Since(start)
	if len(vr.Responses) == 0 {
		return res, nil
	}
	first := vr.Responses[0]
	if first.Error != nil {
		return res, fmt.Errorf("vision error %d: %s", first.Error.Code, first.Error.Message)
	}
	if len(first.TextAnnotations) == 0 {
		c.logger.Info("ocr.vision.no_text", "elapsed_ms", res.Duration.Milliseconds())
		return res, nil
	}

	res.Text = Normalize(first.TextAnnotations[0].Description)
	res.Language = first.TextAnnotations[0].Locale
	res.Confidence = heuristicConfidence(res.Text)
	c.logger.Info("ocr.vision.ok",
		"text_len", len(res.Text),
		"locale", res.Language,
		"confidence", res.Confidence,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
