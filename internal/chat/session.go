package chat

import (
	"context"
	"errors"
	"strings"
)

// ErrClosed is returned by Next once the transport stopped delivering events.
var ErrClosed = errors.New("chat session closed")

// Session is one connection to a chat surface. It is owned by a single
// workflow loop: Next and Done are never called concurrently.
type Session interface {
	Name() string
	// Next blocks until the next event or until ctx is done.
	Next(ctx context.Context) (Event, error)
	// Done marks ev as fully handled; polling transports advance their cursor here.
	Done(ev Event)
	Reply(ctx context.Context, to Origin, msg Message) error
	Close() error
}

// PlainText renders msg for transports without buttons.
func PlainText(msg Message) string {
	if len(msg.Actions) == 0 {
		return msg.Text
	}
	cmds := make([]string, 0, len(msg.Actions))
	for _, a := range msg.Actions {
		cmds = append(cmds, a.Command)
	}
	return msg.Text + "\n\n➡️ Responda: " + strings.Join(cmds, " | ")
}
