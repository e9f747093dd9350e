package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gustavoludtke/vagasbot/internal/llm"
)

// LLMExtractor asks a chat model for the fields and parses its answer leniently.
type LLMExtractor struct {
	completer llm.Completer
	logger    *slog.Logger
}

func NewLLMExtractor(c llm.Completer, logger *slog.Logger) *LLMExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMExtractor{completer: c, logger: logger}
}

func (e *LLMExtractor) ExtractFields(ctx context.Context, text string) (FieldsResult, error) {
	res := FieldsResult{Strategy: StrategyAI}

	content, err := e.completer.Complete(ctx, llm.CompletionRequest{
		System: llm.BuildSystemPrompt(),
		User:   llm.BuildUserPrompt(text),
		Schema: llm.BuildJobJSONSchema(),
	})
	if err != nil {
		return res, fmt.Errorf("completion: %w", err)
	}

	job, cleaned, err := llm.DecodeJob(content, e.logger)
	if err != nil {
		e.logger.Warn("extract.llm.malformed", "error", err, "content_len", len(content))
		res.RawJSON = []byte(content)
		return res, err
	}
	res.Job = job
	res.RawJSON = cleaned
	return res, nil
}
