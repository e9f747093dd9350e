package chat

import "testing"

func TestParseCommand(t *testing.T) {
	h := Header{ID: "m1", Sender: "ana"}
	tests := []struct {
		name     string
		text     string
		wantOK   bool
		wantKind string
		decision Decision
		jobID    int64
		usage    string
	}{
		{name: "plain text", text: "bom dia", wantOK: false},
		{name: "empty", text: "   ", wantOK: false},
		{name: "bang only", text: "!", wantOK: false},
		{name: "punctuation", text: "!!!", wantOK: false},
		{name: "list", text: "!validar", wantOK: true, wantKind: "posted"},
		{name: "list slash", text: "/validar", wantOK: true, wantKind: "posted"},
		{name: "list with bot suffix", text: "/validar@vagasbot", wantOK: true, wantKind: "posted"},
		{name: "approve", text: "!aprovar 42", wantOK: true, wantKind: "decision", decision: Approve, jobID: 42},
		{name: "reject upper", text: "  !REPROVAR 7 ", wantOK: true, wantKind: "decision", decision: Reject, jobID: 7},
		{name: "approve missing id", text: "!aprovar", wantOK: true, wantKind: "error", usage: UsageDecision},
		{name: "approve bad id", text: "!aprovar abc", wantOK: true, wantKind: "error", usage: UsageDecision},
		{name: "approve negative", text: "!aprovar -3", wantOK: true, wantKind: "error", usage: UsageDecision},
		{name: "approve extra args", text: "!aprovar 1 2", wantOK: true, wantKind: "error", usage: UsageDecision},
		{name: "unknown", text: "!publicar 3", wantOK: true, wantKind: "error", usage: UsageGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := ParseCommand(tt.text, h)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v (ev=%#v)", ok, tt.wantOK, ev)
			}
			if !ok {
				return
			}
			if ev.EventHeader().ID != "m1" {
				t.Errorf("header not carried: %#v", ev.EventHeader())
			}
			switch e := ev.(type) {
			case CommandPosted:
				if tt.wantKind != "posted" {
					t.Fatalf("got CommandPosted, want %s", tt.wantKind)
				}
				if e.Command != CommandList {
					t.Errorf("command = %q", e.Command)
				}
			case DecisionPressed:
				if tt.wantKind != "decision" {
					t.Fatalf("got DecisionPressed, want %s", tt.wantKind)
				}
				if e.Decision != tt.decision || e.JobID != tt.jobID || e.Callback {
					t.Errorf("decision = %+v", e)
				}
			case CommandError:
				if tt.wantKind != "error" {
					t.Fatalf("got CommandError, want %s", tt.wantKind)
				}
				if e.Usage != tt.usage {
					t.Errorf("usage = %q, want %q", e.Usage, tt.usage)
				}
			default:
				t.Fatalf("unexpected event %T", ev)
			}
		})
	}
}

func TestParseCommandHelp(t *testing.T) {
	for _, text := range []string{"/start", "!ajuda", "/help"} {
		ev, ok := ParseCommand(text, Header{})
		cp, isCmd := ev.(CommandPosted)
		if !ok || !isCmd || cp.Command != CommandHelp {
			t.Errorf("%q: got %#v, %v", text, ev, ok)
		}
	}
}

func TestCallbackRoundTrip(t *testing.T) {
	for _, d := range []Decision{Approve, Reject} {
		got, id, err := ParseCallback(CallbackData(d, 15))
		if err != nil || got != d || id != 15 {
			t.Errorf("%v: got %v %d %v", d, got, id, err)
		}
	}
	for _, bad := range []string{"", "approve", "approve_", "approve_x", "publish_3", "reject_0"} {
		if _, _, err := ParseCallback(bad); err == nil {
			t.Errorf("ParseCallback(%q) accepted", bad)
		}
	}
}

func TestPlainTextRendersActions(t *testing.T) {
	msg := Message{Text: "Vaga 3", Actions: DecisionActions(3)}
	want := "Vaga 3\n\n➡️ Responda: !aprovar 3 | !reprovar 3"
	if got := PlainText(msg); got != want {
		t.Errorf("PlainText = %q, want %q", got, want)
	}
	if got := PlainText(Message{Text: "ok"}); got != "ok" {
		t.Errorf("PlainText without actions = %q", got)
	}
}
