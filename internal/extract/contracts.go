package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gustavoludtke/vagasbot/internal/entity"
	"github.com/gustavoludtke/vagasbot/internal/llm"
)

// Strategy names, as configured by EXTRACTION_STRATEGY.
const (
	StrategyAI    = "ai"
	StrategyRegex = "regex"
)

// FieldExtractor is the text -> fields stage (LLM or rules).
type FieldExtractor interface {
	ExtractFields(ctx context.Context, text string) (FieldsResult, error)
}

type FieldsResult struct {
	Job      entity.ExtractedJob
	RawJSON  []byte // what the collaborator produced, for the journal
	Strategy string
}

// New returns the extractor for strategy. completer is only used by the AI strategy.
func New(strategy string, completer llm.Completer, logger *slog.Logger) (FieldExtractor, error) {
	switch strategy {
	case StrategyAI:
		if completer == nil {
			return nil, fmt.Errorf("strategy %q needs an LLM client", strategy)
		}
		return NewLLMExtractor(completer, logger), nil
	case StrategyRegex:
		return NewRulesExtractor(logger), nil
	default:
		return nil, fmt.Errorf("unknown extraction strategy %q", strategy)
	}
}
