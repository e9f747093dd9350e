// Package present renders workflow results as chat messages.
package present

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gustavoludtke/vagasbot/constants"
	"github.com/gustavoludtke/vagasbot/internal/chat"
	"github.com/gustavoludtke/vagasbot/internal/common"
	"github.com/gustavoludtke/vagasbot/internal/entity"
)

const (
	Empty = "N/A"

	NoPendingText = "Nenhuma vaga pendente."
	NoTextText    = "Não consegui encontrar texto na imagem. Envie uma foto mais nítida do anúncio."
	MalformedText = "⚠️ Não consegui estruturar os dados da vaga a partir do texto encontrado."
	ExtractText   = "❌ Falha ao extrair os dados da vaga. Tente novamente mais tarde."
	TimeoutText   = "⏱️ O serviço demorou demais para responder. Tente novamente em instantes."
	GenericText   = "Erro inesperado ao processar a mensagem."
)

// Job renders the nine fields in their fixed order, one per line.
func Job(j entity.ExtractedJob) string {
	var b strings.Builder
	for i, f := range constants.JobFields {
		if i > 0 {
			b.WriteByte('\n')
		}
		v := strings.TrimSpace(j.Text(f))
		if v == "" {
			v = Empty
		}
		fmt.Fprintf(&b, "%s: %s", f.Label(), v)
	}
	return b.String()
}

func text(s string) []chat.Message {
	return []chat.Message{{Text: s}}
}

// Submitted confirms a new pending vaga. duplicateOf, when set, names an
// earlier vaga created from the same image.
func Submitted(id int64, j entity.ExtractedJob, duplicateOf *int64) []chat.Message {
	var b strings.Builder
	if j.IsDiagnostic() {
		fmt.Fprintf(&b, "⚠️ Não consegui estruturar os dados da vaga. O texto foi enviado para moderação como está (ID %d).", id)
	} else {
		fmt.Fprintf(&b, "✅ Vaga enviada para moderação (ID %d).\n\n%s", id, Job(j))
	}
	if duplicateOf != nil {
		fmt.Fprintf(&b, "\n\nℹ️ Esta imagem já tinha sido enviada antes (vaga %d).", *duplicateOf)
	}
	return text(b.String())
}

func NoText() []chat.Message    { return text(NoTextText) }
func Malformed() []chat.Message { return text(MalformedText) }
func Timeout() []chat.Message   { return text(TimeoutText) }
func Generic() []chat.Message   { return text(GenericText) }

// ExtractionFailed covers collaborator failures that are neither a timeout
// nor unusable output.
func ExtractionFailed() []chat.Message { return text(ExtractText) }

func SubmitFailed(err error) []chat.Message {
	return text("❌ Não foi possível enviar a vaga para moderação" + storeDetail(err) + ".")
}

// Pending renders one message per vaga with approve/reject actions.
func Pending(jobs []entity.PendingJob) []chat.Message {
	if len(jobs) == 0 {
		return text(NoPendingText)
	}
	out := make([]chat.Message, 0, len(jobs))
	for _, p := range jobs {
		out = append(out, chat.Message{
			Text:    fmt.Sprintf("📋 Vaga pendente #%d\n\n%s", p.ID, Job(p.Data)),
			Actions: chat.DecisionActions(p.ID),
		})
	}
	return out
}

func ListFailed(err error) []chat.Message {
	return text("❌ Não foi possível consultar as vagas pendentes" + storeDetail(err) + ".")
}

// Decided confirms an applied decision. edit replaces the prompt that
// carried the buttons.
func Decided(id int64, approved bool, storeMessage string, edit bool) []chat.Message {
	s := fmt.Sprintf("🚫 Vaga %d reprovada.", id)
	if approved {
		s = fmt.Sprintf("✅ Vaga %d aprovada.", id)
	}
	if m := strings.TrimSpace(storeMessage); m != "" {
		s += "\n" + m
	}
	return []chat.Message{{Text: s, Edit: edit}}
}

func AlreadyDecided(id int64, edit bool) []chat.Message {
	return []chat.Message{{Text: fmt.Sprintf("ℹ️ A vaga %d já foi decidida ou não existe.", id), Edit: edit}}
}

func DecideFailed(id int64, err error) []chat.Message {
	return text(fmt.Sprintf("❌ Não foi possível registrar a decisão da vaga %d%s.", id, storeDetail(err)))
}

func CommandError(usage string) []chat.Message {
	if usage == "" {
		usage = chat.UsageGeneral
	}
	return text("Comando inválido. " + usage)
}

func Help() []chat.Message {
	return text("Envie a foto de um anúncio de vaga para cadastrá-la.\n" + chat.UsageGeneral)
}

const maxDetail = 200

// storeDetail surfaces the status and body the content store answered with.
func storeDetail(err error) string {
	var se *common.StoreError
	if !errors.As(err, &se) || se.StatusCode == 0 {
		return ""
	}
	body := strings.TrimSpace(se.Body)
	if len(body) > maxDetail {
		cut := maxDetail
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut] + "…"
	}
	if body == "" {
		return fmt.Sprintf(" (HTTP %d)", se.StatusCode)
	}
	return fmt.Sprintf(" (HTTP %d: %s)", se.StatusCode, body)
}
