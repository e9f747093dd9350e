package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"strings"

	"github.com/gustavoludtke/vagasbot/constants"
)

// synonyms the models keep using instead of our keys
var synonyms = map[string]constants.Field{
	"empresa":         constants.FieldCompany,
	"nome_da_empresa": constants.FieldCompany,
	"telefone":        constants.FieldPhone,
	"contato":         constants.FieldPhone,
	"email":           constants.FieldEmail,
	"e-mail":          constants.FieldEmail,
	"beneficio":       constants.FieldBenefits,
	"requisito":       constants.FieldRequirements,
	"cargo":           constants.FieldTitle,
	"vaga":            constants.FieldTitle,
	"horario":         constants.FieldSchedule,
	"atividade":       constants.FieldActivities,
	"carga_horaria":   constants.FieldHours,
}

// NormalizeJobJSON makes model output fit the job schema where the intent is clear:
//   - unwraps {"vaga": {...}} style envelopes
//   - renames known synonyms
//   - numbers -> strings, a bare string in a list field -> one-item list
//   - drops null/empty values and unknown keys
//
// It returns the cleaned document and what was dropped or renamed.
func NormalizeJobJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}
	m = unwrapEnvelope(m)

	changes := make([]string, 0, 8)
	for from, to := range synonyms {
		if v, ok := m[from]; ok {
			if _, exists := m[string(to)]; !exists {
				m[string(to)] = v
			}
			delete(m, from)
			changes = append(changes, from+"->"+string(to))
		}
	}

	known := make(map[string]constants.Field, len(constants.JobFields))
	for _, f := range constants.JobFields {
		known[string(f)] = f
	}

	for k, v := range maps.Clone(m) {
		f, ok := known[k]
		if !ok {
			delete(m, k)
			changes = append(changes, k+"(unknown)")
			continue
		}
		var out any
		if f.IsList() {
			out = coerceList(v)
		} else {
			out = coerceScalar(v)
		}
		if out == nil {
			delete(m, k)
			changes = append(changes, k+"(empty)")
			continue
		}
		m[k] = out
	}

	b, err := json.Marshal(m)
	if err != nil {
		return nil, changes, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(changes) > 0 {
		logger.Warn("llm.extract.normalize_sanitize", "changes", changes)
	}
	return b, changes, nil
}

// unwrapEnvelope returns the inner object when m is a single-key wrapper such
// as {"vaga": {...}}. No job field holds an object, so this is unambiguous.
func unwrapEnvelope(m map[string]any) map[string]any {
	if len(m) != 1 {
		return m
	}
	for _, v := range m {
		if inner, ok := v.(map[string]any); ok {
			return inner
		}
	}
	return m
}

func coerceScalar(v any) any {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return s
		}
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		if parts := stringItems(t); len(parts) > 0 {
			return strings.Join(parts, "; ")
		}
	}
	return nil
}

func coerceList(v any) any {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	case float64:
		return []string{strconv.FormatFloat(t, 'f', -1, 64)}
	case []any:
		if parts := stringItems(t); len(parts) > 0 {
			return parts
		}
	}
	return nil
}

func stringItems(items []any) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch t := it.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				out = append(out, s)
			}
		case float64:
			out = append(out, strconv.FormatFloat(t, 'f', -1, 64))
		}
	}
	return out
}
