package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gustavoludtke/vagasbot/constants"
	"github.com/gustavoludtke/vagasbot/internal/common"
	"github.com/gustavoludtke/vagasbot/internal/entity"
)

// Store is the content store: the system of record for vagas and their
// moderation state.
type Store interface {
	Submit(ctx context.Context, job entity.ExtractedJob) (int64, error)
	ListPending(ctx context.Context) ([]entity.PendingJob, error)
	Decide(ctx context.Context, id int64, approved bool) (string, error)
}

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration // per call, default 25s
}

// Client talks to the content store over HTTP with bearer auth. Calls are
// never retried here.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, client *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 25 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: client, logger: logger}
}

type submitResponse struct {
	VagaID int64 `json:"vaga_id"`
}

type pendingItem struct {
	ID    int64           `json:"id"`
	Dados json.RawMessage `json:"dados"`
}

type decideRequest struct {
	VagaID   int64 `json:"vaga_id"`
	Aprovado bool  `json:"aprovado"`
}

type decideResponse struct {
	Message string `json:"message"`
}

func (c *Client) Submit(ctx context.Context, job entity.ExtractedJob) (int64, error) {
	raw, status, err := c.do(ctx, "submit", http.MethodPost, "/submit_vaga", job)
	if err != nil {
		return 0, err
	}
	var out submitResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		// the store may well have created the vaga; keep what it said
		c.logger.Warn("store.submit.decode_error", "req_id", common.RequestIDFromContext(ctx), "status", status, "error", err)
		return 0, &common.StoreError{Op: "submit", StatusCode: status, Body: strings.TrimSpace(string(raw)), Err: fmt.Errorf("decode response: %w", err)}
	}
	c.logger.Info("store.submit.ok", "req_id", common.RequestIDFromContext(ctx), "vaga_id", out.VagaID)
	return out.VagaID, nil
}

func (c *Client) ListPending(ctx context.Context) ([]entity.PendingJob, error) {
	raw, _, err := c.do(ctx, "list", http.MethodGet, "/pending_vagas", nil)
	if err != nil {
		return nil, err
	}
	var items []pendingItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &common.StoreError{Op: "list", Body: string(raw), Err: fmt.Errorf("decode response: %w", err)}
	}

	out := make([]entity.PendingJob, 0, len(items))
	for _, it := range items {
		job, err := decodeDados(it.Dados)
		if err != nil {
			c.logger.Warn("store.list.bad_dados", "vaga_id", it.ID, "error", err)
		}
		out = append(out, entity.PendingJob{ID: it.ID, Data: job.Filled(), State: constants.StateSubmitted})
	}
	return out, nil
}

func (c *Client) Decide(ctx context.Context, id int64, approved bool) (string, error) {
	raw, _, err := c.do(ctx, "decide", http.MethodPost, "/validate_vaga", decideRequest{VagaID: id, Aprovado: approved})
	if err != nil {
		return "", err
	}
	var out decideResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		// a 2xx without the usual body still means the decision went through
		c.logger.Warn("store.decide.decode_error", "vaga_id", id, "error", err)
		return strings.TrimSpace(string(raw)), nil
	}
	return out.Message, nil
}

// decodeDados accepts the job as an object or as a JSON-encoded string.
func decodeDados(raw json.RawMessage) (entity.ExtractedJob, error) {
	var job entity.ExtractedJob
	if len(raw) == 0 || string(raw) == "null" {
		return job, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return job, err
		}
		raw = json.RawMessage(s)
	}
	err := json.Unmarshal(raw, &job)
	return job, err
}

// do returns the body and status of a 2xx response.
func (c *Client) do(ctx context.Context, op, method, path string, body any) ([]byte, int, error) {
	rid := common.RequestIDFromContext(ctx)
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var rdr io.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		if err != nil {
			return nil, 0, &common.StoreError{Op: op, Err: fmt.Errorf("encode json: %w", err)}
		}
		rdr = bytes.NewReader(bs)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, rdr)
	if err != nil {
		return nil, 0, &common.StoreError{Op: op, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("store.http.send_error", "req_id", rid, "op", op, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, 0, &common.StoreError{Op: op, Err: err}
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warn("store.http.response_body_close_error", "req_id", rid, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &common.StoreError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Info("store.http.response",
		"req_id", rid,
		"op", op,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return nil, resp.StatusCode, &common.StoreError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return raw, resp.StatusCode, nil
}
