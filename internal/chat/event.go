package chat

import "strconv"

// Origin says where a reply to an event goes.
type Origin struct {
	ChatID    int64  // push transport chat
	MessageID int    // message to edit, when the transport supports it
	Chat      string // polling transport conversation name
	Ref       string // polling transport unit reference
}

// Header is common to all inbound events. ID is transport-local and only
// meaningful to the session that produced it.
type Header struct {
	ID     string
	Origin Origin
	Sender string
}

func (h Header) EventHeader() Header { return h }

// Event is one inbound chat event: ImagePosted, CommandPosted, DecisionPressed
// or CommandError.
type Event interface {
	EventHeader() Header
}

type ImagePosted struct {
	Header
	Image []byte
}

// Command is a non-decision command.
type Command string

const (
	CommandList Command = "validar"
	CommandHelp Command = "ajuda"
)

type CommandPosted struct {
	Header
	Command Command
	Text    string
}

type Decision int

const (
	Approve Decision = iota + 1
	Reject
)

func (d Decision) Approved() bool { return d == Approve }

func (d Decision) String() string {
	switch d {
	case Approve:
		return "approve"
	case Reject:
		return "reject"
	}
	return "unknown"
}

type DecisionPressed struct {
	Header
	Decision Decision
	JobID    int64
	Callback bool // came from a button; the reply edits the prompt
}

type CommandError struct {
	Header
	Text  string
	Usage string
}

// Action is an approve/reject affordance. Push transports render Data as a
// button payload; text transports show Command.
type Action struct {
	Label   string
	Data    string
	Command string
}

// Message is one outbound chat message.
type Message struct {
	Text    string
	Actions []Action
	Edit    bool // replace the message at Origin.MessageID when possible
}

// DecisionActions returns the approve/reject pair for vaga id.
func DecisionActions(id int64) []Action {
	s := strconv.FormatInt(id, 10)
	return []Action{
		{Label: "✅ Aprovar", Data: CallbackData(Approve, id), Command: "!aprovar " + s},
		{Label: "❌ Reprovar", Data: CallbackData(Reject, id), Command: "!reprovar " + s},
	}
}
