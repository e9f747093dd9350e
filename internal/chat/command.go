package chat

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
)

const (
	UsageDecision = "Uso: !aprovar <id> | !reprovar <id>"
	UsageGeneral  = "Comandos: !validar (lista as vagas pendentes), !aprovar <id>, !reprovar <id>"
)

var errBadCallback = errors.New("malformed callback data")

// ParseCommand classifies a text message. Text that does not start with
// "!" or "/" followed by a word is not a command (ok=false). A known command
// with a bad argument, or an unknown command word, yields CommandError.
func ParseCommand(text string, h Header) (ev Event, ok bool) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 2 || (trimmed[0] != '!' && trimmed[0] != '/') {
		return nil, false
	}
	fields := strings.Fields(trimmed[1:])
	if len(fields) == 0 {
		return nil, false
	}
	word := strings.ToLower(fields[0])
	// telegram appends the bot name in groups: /aprovar@vagasbot
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}
	if !isWord(word) {
		return nil, false
	}
	args := fields[1:]

	switch word {
	case "validar", "pendentes":
		return CommandPosted{Header: h, Command: CommandList, Text: trimmed}, true
	case "ajuda", "help", "start":
		return CommandPosted{Header: h, Command: CommandHelp, Text: trimmed}, true
	case "aprovar", "reprovar":
		if len(args) != 1 {
			return CommandError{Header: h, Text: trimmed, Usage: UsageDecision}, true
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return CommandError{Header: h, Text: trimmed, Usage: UsageDecision}, true
		}
		d := Approve
		if word == "reprovar" {
			d = Reject
		}
		return DecisionPressed{Header: h, Decision: d, JobID: id}, true
	}
	return CommandError{Header: h, Text: trimmed, Usage: UsageGeneral}, true
}

func isWord(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}

// CallbackData encodes a button payload as <approve|reject>_<id>.
func CallbackData(d Decision, id int64) string {
	return d.String() + "_" + strconv.FormatInt(id, 10)
}

// ParseCallback decodes a button payload produced by CallbackData.
func ParseCallback(data string) (Decision, int64, error) {
	action, idStr, found := strings.Cut(data, "_")
	if !found {
		return 0, 0, errBadCallback
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, 0, errBadCallback
	}
	switch action {
	case "approve":
		return Approve, id, nil
	case "reject":
		return Reject, id, nil
	}
	return 0, 0, errBadCallback
}
