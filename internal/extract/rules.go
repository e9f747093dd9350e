package extract

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gustavoludtke/vagasbot/internal/entity"
)

// NotFound is the legacy default for a field the patterns did not match.
const NotFound = "Não encontrado"

// LegacyPosting is the shape of the first, pattern-only extractor. It is kept
// for compatibility and translated into entity.ExtractedJob.
type LegacyPosting struct {
	Cargo         string `json:"cargo"`
	Salario       string `json:"salario"`
	Local         string `json:"local"`
	TextoCompleto string `json:"texto_completo"`
}

var (
	// the separator may span a line break: "VAGA:\nAuxiliar" yields "Auxiliar"
	reCargo      = regexp.MustCompile(`(?im)^(?:cargo|vaga|posição)[\s:]*(.*)`)
	reSalario    = regexp.MustCompile(`(?i)(R\$\s*[\d.,]+)`)
	reLocal      = regexp.MustCompile(`(?im)^(?:local|localização|cidade)[\s:]*(.*)`)
	reModalidade = regexp.MustCompile(`(?i)\b(remoto|híbrido)\b`)

	reEmailAddr = regexp.MustCompile(`[\w.+-]+@[\w-]+(?:\.[\w-]+)+`)
	rePhoneNum  = regexp.MustCompile(`\(?\b\d{2}\)?\s?9?\d{4}[-\s]?\d{4}\b`)
)

// ExtractLegacy applies the legacy patterns to text.
func ExtractLegacy(text string) LegacyPosting {
	p := LegacyPosting{
		Cargo:         NotFound,
		Salario:       NotFound,
		Local:         NotFound,
		TextoCompleto: text,
	}
	if m := reCargo.FindStringSubmatch(text); m != nil {
		p.Cargo = strings.TrimSpace(m[1])
	}
	if m := reSalario.FindStringSubmatch(text); m != nil {
		p.Salario = m[1]
	}
	if m := reLocal.FindStringSubmatch(text); m != nil {
		p.Local = strings.TrimSpace(m[1])
	} else if m := reModalidade.FindStringSubmatch(text); m != nil {
		p.Local = capitalize(m[1])
	}
	return p
}

// ToJob translates the legacy shape into the canonical one: cargo is the job
// title, salary goes into benefits and location into the schedule line.
// Unmatched values stay blank so field filling applies.
func (p LegacyPosting) ToJob() entity.ExtractedJob {
	job := entity.ExtractedJob{OriginalText: p.TextoCompleto}
	if found(p.Cargo) {
		job.Title = p.Cargo
	}
	if found(p.Salario) {
		job.Benefits = append(job.Benefits, "Salário: "+p.Salario)
	}
	if found(p.Local) {
		job.Schedule = "Local: " + p.Local
	}
	return job
}

func found(v string) bool {
	return v != "" && v != NotFound
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// RulesExtractor is the pattern-based strategy. It never fails.
type RulesExtractor struct {
	logger *slog.Logger
}

func NewRulesExtractor(logger *slog.Logger) *RulesExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RulesExtractor{logger: logger}
}

func (e *RulesExtractor) ExtractFields(_ context.Context, text string) (FieldsResult, error) {
	legacy := ExtractLegacy(text)
	job := legacy.ToJob()
	if m := reEmailAddr.FindString(text); m != "" {
		job.Email = m
	}
	if m := rePhoneNum.FindString(text); m != "" {
		job.Phone = strings.TrimSpace(m)
	}

	raw, _ := json.Marshal(legacy)
	e.logger.Debug("extract.rules.ok",
		"cargo", legacy.Cargo,
		"salario", legacy.Salario,
		"local", legacy.Local,
	)
	return FieldsResult{Job: job, RawJSON: raw, Strategy: StrategyRegex}, nil
}
