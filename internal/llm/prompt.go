package llm

import (
	"strings"
	"unicode/utf8"

	"github.com/gustavoludtke/vagasbot/constants"
)

const maxPromptText = 4000

// BuildSystemPrompt lists the keys and the formatting rules for job flyers.
func BuildSystemPrompt() string {
	var keys []string
	for _, f := range constants.JobFields {
		kind := "string"
		if f.IsList() {
			kind = "array of strings"
		}
		keys = append(keys, string(f)+" ("+kind+")")
	}

	parts := []string{
		"You read OCR text from Brazilian job-advertisement flyers and return ONLY a JSON object.",
		"Keys: " + strings.Join(keys, ", ") + ".",
		"Keep values in Portuguese, as written on the flyer; fix obvious OCR typos only.",
		"beneficios, requisitos and atividades are arrays with one item per bullet or sentence.",
		"telefone_contato keeps the number as printed, including DDD; if there are several, join them with ' / '.",
		"horario_trabalho is the schedule (days and times); quantidade_horas is the weekly or daily workload, e.g. '44h semanais'.",
		"Never output null. If a field is not present, omit it.",
		"Do not add keys that are not listed.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt wraps the recognized text, truncated for very long flyers.
func BuildUserPrompt(ocrText string) string {
	ocr := strings.TrimSpace(ocrText)

	var b strings.Builder
	b.WriteString("OCR text:\n")
	if len(ocr) > maxPromptText {
		n := maxPromptText
		for n > 0 && !utf8.RuneStart(ocr[n]) {
			n--
		}
		b.WriteString(ocr[:n])
		b.WriteString("\n…(truncated)")
	} else {
		b.WriteString(ocr)
	}
	return b.String()
}
