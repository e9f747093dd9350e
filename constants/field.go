package constants

// Field is a key of the structured job posting, as the content store names it.
type Field string

const (
	FieldCompany      Field = "nome_empresa"
	FieldPhone        Field = "telefone_contato"
	FieldEmail        Field = "email_contato"
	FieldBenefits     Field = "beneficios"
	FieldRequirements Field = "requisitos"
	FieldTitle        Field = "nome_cargo"
	FieldSchedule     Field = "horario_trabalho"
	FieldActivities   Field = "atividades"
	FieldHours        Field = "quantidade_horas"
)

// FieldOriginalText carries the recognized text verbatim; it is not one of the nine fields.
const FieldOriginalText = "texto_original"

// JobFields lists the nine posting fields in display order.
var JobFields = []Field{
	FieldCompany,
	FieldPhone,
	FieldEmail,
	FieldBenefits,
	FieldRequirements,
	FieldTitle,
	FieldSchedule,
	FieldActivities,
	FieldHours,
}

var listFields = map[Field]struct{}{
	FieldBenefits:     {},
	FieldRequirements: {},
	FieldActivities:   {},
}

var fieldLabels = map[Field]string{
	FieldCompany:      "Empresa",
	FieldPhone:        "Telefone",
	FieldEmail:        "E-mail",
	FieldBenefits:     "Benefícios",
	FieldRequirements: "Requisitos",
	FieldTitle:        "Cargo",
	FieldSchedule:     "Horário",
	FieldActivities:   "Atividades",
	FieldHours:        "Carga horária",
}

// IsList reports whether the field holds a list of strings.
func (f Field) IsList() bool {
	_, ok := listFields[f]
	return ok
}

// Label is the human-readable name shown in chat and spreadsheets.
func (f Field) Label() string {
	if l, ok := fieldLabels[f]; ok {
		return l
	}
	return string(f)
}

// AsStringSlice returns the field keys as plain strings.
func AsStringSlice() []string {
	out := make([]string, 0, len(JobFields))
	for _, f := range JobFields {
		out = append(out, string(f))
	}
	return out
}
