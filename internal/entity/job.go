package entity

import (
	"strings"

	"github.com/gustavoludtke/vagasbot/constants"
)

// Sentinels written into fields the extraction could not fill.
const (
	NotInformed     = "Não informado"
	ExtractionError = "Erro na extração"
)

// ExtractedJob is the structured posting read from one flyer. JSON keys are the
// ones the content store expects.
type ExtractedJob struct {
	Company      string   `json:"nome_empresa"`
	Phone        string   `json:"telefone_contato"`
	Email        string   `json:"email_contato"`
	Benefits     []string `json:"beneficios"`
	Requirements []string `json:"requisitos"`
	Title        string   `json:"nome_cargo"`
	Schedule     string   `json:"horario_trabalho"`
	Activities   []string `json:"atividades"`
	Hours        string   `json:"quantidade_horas"`
	OriginalText string   `json:"texto_original"`
}

// DiagnosticJob is the record produced when extraction output could not be
// understood: every field carries the error sentinel and text is kept verbatim.
func DiagnosticJob(text string) ExtractedJob {
	return ExtractedJob{
		Company:      ExtractionError,
		Phone:        ExtractionError,
		Email:        ExtractionError,
		Benefits:     []string{ExtractionError},
		Requirements: []string{ExtractionError},
		Title:        ExtractionError,
		Schedule:     ExtractionError,
		Activities:   []string{ExtractionError},
		Hours:        ExtractionError,
		OriginalText: text,
	}
}

// Filled returns a copy where blank scalars become NotInformed and nil lists
// become empty lists, so all nine fields are present when serialized.
func (j ExtractedJob) Filled() ExtractedJob {
	scalar := func(s *string) {
		if strings.TrimSpace(*s) == "" {
			*s = NotInformed
		}
	}
	list := func(l *[]string) {
		out := make([]string, 0, len(*l))
		for _, v := range *l {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
		*l = out
	}
	scalar(&j.Company)
	scalar(&j.Phone)
	scalar(&j.Email)
	list(&j.Benefits)
	list(&j.Requirements)
	scalar(&j.Title)
	scalar(&j.Schedule)
	list(&j.Activities)
	scalar(&j.Hours)
	return j
}

// IsDiagnostic reports whether j came from DiagnosticJob.
func (j ExtractedJob) IsDiagnostic() bool {
	return j.Company == ExtractionError && j.Title == ExtractionError && j.Hours == ExtractionError
}

// Scalar returns the value of a scalar field; list fields return "".
func (j ExtractedJob) Scalar(f constants.Field) string {
	switch f {
	case constants.FieldCompany:
		return j.Company
	case constants.FieldPhone:
		return j.Phone
	case constants.FieldEmail:
		return j.Email
	case constants.FieldTitle:
		return j.Title
	case constants.FieldSchedule:
		return j.Schedule
	case constants.FieldHours:
		return j.Hours
	}
	return ""
}

// List returns the value of a list field; scalar fields return nil.
func (j ExtractedJob) List(f constants.Field) []string {
	switch f {
	case constants.FieldBenefits:
		return j.Benefits
	case constants.FieldRequirements:
		return j.Requirements
	case constants.FieldActivities:
		return j.Activities
	}
	return nil
}

// Text renders field f as one line, joining lists with "; ".
func (j ExtractedJob) Text(f constants.Field) string {
	if f.IsList() {
		return strings.Join(j.List(f), "; ")
	}
	return j.Scalar(f)
}

// PendingJob is a vaga waiting in the content store. It is never cached:
// listings always come straight from the store.
type PendingJob struct {
	ID    int64
	Data  ExtractedJob
	State constants.SubmissionState
}
