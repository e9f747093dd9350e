// Package httpapi exposes the extraction pipeline over HTTP for ad-hoc checks.
// Nothing reaching it is submitted to the content store.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/gustavoludtke/vagasbot/constants"
	"github.com/gustavoludtke/vagasbot/internal/common"
	"github.com/gustavoludtke/vagasbot/internal/entity"
	"github.com/gustavoludtke/vagasbot/internal/pipeline"
)

const (
	imageField   = "imagem"
	noImageError = "Nenhum arquivo de imagem enviado"
	noTextError  = "Nenhum texto encontrado"
)

type Extractor interface {
	Run(ctx context.Context, image []byte) (pipeline.Result, error)
}

type Handler struct {
	extractor Extractor
	logger    *slog.Logger
	mux       *http.ServeMux
}

func NewHandler(extractor Extractor, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{extractor: extractor, logger: logger, mux: http.NewServeMux()}
	h.mux.HandleFunc("POST /analisar", h.analyze)
	h.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// malformedBody is the diagnostic record plus the error message.
type malformedBody struct {
	entity.ExtractedJob
	Erro string `json:"erro"`
}

func (h *Handler) analyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rid := uuid.NewString()
	ctx := common.WithRequestID(r.Context(), rid)

	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxImageBytes+1<<20)
	file, _, err := r.FormFile(imageField)
	if err != nil {
		writeError(w, http.StatusBadRequest, noImageError)
		return
	}
	defer file.Close()
	image, err := io.ReadAll(file)
	if err != nil {
		h.logger.Warn("httpapi.read.failed", "req_id", rid, "error", err)
		writeError(w, http.StatusBadRequest, noImageError)
		return
	}

	res, err := h.extractor.Run(ctx, image)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res.Job)
	case errors.Is(err, common.ErrNoTextFound):
		writeError(w, http.StatusOK, noTextError)
	case errors.Is(err, common.ErrMalformedExtraction):
		writeJSON(w, http.StatusUnprocessableEntity, malformedBody{ExtractedJob: res.Job, Erro: err.Error()})
	default:
		h.logger.Error("httpapi.analyze.failed", "req_id", rid, "code", common.Code(err), "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.logger.Info("httpapi.analyze.done",
		"req_id", rid,
		"bytes", len(image),
		"code", common.Code(err),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"erro": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
