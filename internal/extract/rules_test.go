package extract

import (
	"context"
	"slices"
	"testing"

	"github.com/gustavoludtke/vagasbot/internal/entity"
)

func TestExtractLegacy(t *testing.T) {
	tests := []struct {
		name string
		text string
		want LegacyPosting
	}{
		{
			name: "flyer",
			text: "Cargo: Analista\nLocal: Remoto\nR$ 3000,00",
			want: LegacyPosting{Cargo: "Analista", Salario: "R$ 3000,00", Local: "Remoto", TextoCompleto: "Cargo: Analista\nLocal: Remoto\nR$ 3000,00"},
		},
		{
			name: "vaga prefix and modality fallback",
			text: "VAGA Desenvolvedor Go\nTrabalho HÍBRIDO em SP",
			want: LegacyPosting{Cargo: "Desenvolvedor Go", Salario: NotFound, Local: "Híbrido", TextoCompleto: "VAGA Desenvolvedor Go\nTrabalho HÍBRIDO em SP"},
		},
		{
			name: "nothing matches",
			text: "Bom dia a todos",
			want: LegacyPosting{Cargo: NotFound, Salario: NotFound, Local: NotFound, TextoCompleto: "Bom dia a todos"},
		},
		{
			name: "headings on their own line",
			text: "VAGA:\nAuxiliar de Cozinha\nLocal:\nCentro",
			want: LegacyPosting{Cargo: "Auxiliar de Cozinha", Salario: NotFound, Local: "Centro", TextoCompleto: "VAGA:\nAuxiliar de Cozinha\nLocal:\nCentro"},
		},
		{
			name: "lowercase currency",
			text: "Ajudante geral\nsalário r$ 1.500,00",
			want: LegacyPosting{Cargo: NotFound, Salario: "r$ 1.500,00", Local: NotFound, TextoCompleto: "Ajudante geral\nsalário r$ 1.500,00"},
		},
		{
			name: "flyer with every heading split",
			text: "VAGA:\nAuxiliar de Cozinha\nLocal:\nCentro\nr$ 1.500,00",
			want: LegacyPosting{Cargo: "Auxiliar de Cozinha", Salario: "r$ 1.500,00", Local: "Centro", TextoCompleto: "VAGA:\nAuxiliar de Cozinha\nLocal:\nCentro\nr$ 1.500,00"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractLegacy(tt.text); got != tt.want {
				t.Errorf("ExtractLegacy(%q)\n got %+v\nwant %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestRulesExtractorEndToEnd(t *testing.T) {
	text := "Cargo: Analista\nLocal: Remoto\nR$ 3000,00"
	res, err := NewRulesExtractor(nil).ExtractFields(context.Background(), text)
	if err != nil {
		t.Fatalf("ExtractFields: %v", err)
	}
	if res.Strategy != StrategyRegex {
		t.Errorf("Strategy = %q", res.Strategy)
	}

	got := res.Job.Filled()
	want := entity.ExtractedJob{
		Company:      entity.NotInformed,
		Phone:        entity.NotInformed,
		Email:        entity.NotInformed,
		Benefits:     []string{"Salário: R$ 3000,00"},
		Requirements: []string{},
		Title:        "Analista",
		Schedule:     "Local: Remoto",
		Activities:   []string{},
		Hours:        entity.NotInformed,
		OriginalText: text,
	}
	if got.Company != want.Company || got.Phone != want.Phone || got.Email != want.Email ||
		got.Title != want.Title || got.Schedule != want.Schedule || got.Hours != want.Hours ||
		got.OriginalText != want.OriginalText {
		t.Errorf("scalars\n got %+v\nwant %+v", got, want)
	}
	if !slices.Equal(got.Benefits, want.Benefits) || !slices.Equal(got.Requirements, want.Requirements) ||
		!slices.Equal(got.Activities, want.Activities) {
		t.Errorf("lists\n got %q %q %q\nwant %q %q %q", got.Benefits, got.Requirements, got.Activities,
			want.Benefits, want.Requirements, want.Activities)
	}
}

func TestRulesExtractorContacts(t *testing.T) {
	text := "Vaga: Vendedor\nEnvie currículo para rh@loja.com.br\nWhatsApp (11) 98765-4321"
	res, _ := NewRulesExtractor(nil).ExtractFields(context.Background(), text)
	if res.Job.Email != "rh@loja.com.br" {
		t.Errorf("Email = %q", res.Job.Email)
	}
	if res.Job.Phone != "(11) 98765-4321" {
		t.Errorf("Phone = %q", res.Job.Phone)
	}
	if res.Job.Title != "Vendedor" {
		t.Errorf("Title = %q", res.Job.Title)
	}
}
