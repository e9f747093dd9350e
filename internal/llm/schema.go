package llm

import "github.com/gustavoludtke/vagasbot/constants"

// BuildJobJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// We pass this to the model as an output constraint and also use it locally to
// validate. Every field is optional (absent ones are filled later) but at least
// one known key must be present.
func BuildJobJSONSchema() map[string]any {
	props := map[string]any{}
	anyOf := make([]any, 0, len(constants.JobFields))
	for _, f := range constants.JobFields {
		if f.IsList() {
			props[string(f)] = map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			}
		} else {
			props[string(f)] = map[string]any{"type": "string"}
		}
		anyOf = append(anyOf, map[string]any{"required": []string{string(f)}})
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"anyOf":                anyOf,
	}
}
