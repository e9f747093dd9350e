package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gustavoludtke/vagasbot/internal/common"
)

// maxResponseBytes bounds what a model endpoint may send back.
const maxResponseBytes = 4 << 20

// StatusError is a completed call that the endpoint answered with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string // first 512 bytes
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// PostJSON posts body as JSON to url and returns the raw response. A deadline
// or network timeout is reported as common.ErrTransportTimeout.
func PostJSON(ctx context.Context, client *http.Client, url string, body any, headers map[string]string, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}
	rid := common.RequestIDFromContext(ctx)
	start := time.Now()

	bs, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		logger.Warn("llm.http.send_failed", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		if common.IsTimeout(err) {
			return nil, fmt.Errorf("%w: %v", common.ErrTransportTimeout, err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	logger.Debug("llm.http.response",
		"req_id", rid,
		"status", resp.StatusCode,
		"request_bytes", len(bs),
		"response_bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		b := raw
		if len(b) > 512 {
			b = b[:512]
		}
		return raw, &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.ToValidUTF8(b, nil))}
	}
	return raw, nil
}
