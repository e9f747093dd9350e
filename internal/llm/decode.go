package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gustavoludtke/vagasbot/internal/common"
	"github.com/gustavoludtke/vagasbot/internal/entity"
)

// DecodeJob turns raw model output into an ExtractedJob. Any failure along the
// way wraps common.ErrMalformedExtraction. The returned bytes are the cleaned
// JSON that was validated.
func DecodeJob(content string, logger *slog.Logger) (entity.ExtractedJob, []byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	obj, err := ExtractJSONObject(StripCodeFences(content))
	if err != nil {
		return entity.ExtractedJob{}, nil, fmt.Errorf("%w: %w", common.ErrMalformedExtraction, err)
	}

	cleaned, _, err := NormalizeJobJSON([]byte(obj), logger)
	if err != nil {
		return entity.ExtractedJob{}, []byte(obj), fmt.Errorf("%w: %w", common.ErrMalformedExtraction, err)
	}
	if err := ValidateJSONAgainstSchema(BuildJobJSONSchema(), cleaned); err != nil {
		logger.Error("llm.extract.schema_validation_failed", "error", err, "content", string(cleaned))
		return entity.ExtractedJob{}, cleaned, fmt.Errorf("%w: %w", common.ErrMalformedExtraction, err)
	}

	var job entity.ExtractedJob
	if err := json.Unmarshal(cleaned, &job); err != nil {
		return entity.ExtractedJob{}, cleaned, fmt.Errorf("%w: unmarshal fields: %w", common.ErrMalformedExtraction, err)
	}
	return job, cleaned, nil
}
