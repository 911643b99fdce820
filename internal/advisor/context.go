package advisor

// ContextWindow is how many past turns are replayed to the model.
const ContextWindow = 10

// Speaker tags who authored a turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Role is a chat-completion message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one stored exchange unit of a conversation.
type Turn struct {
	Speaker Speaker
	Text    string
}

// Message is one role-tagged entry of a completion request.
type Message struct {
	Role    Role
	Content string
}

// BuildContext assembles the messages for one completion request: the persona
// directive, the last ContextWindow turns of history and the new user message.
// Turns with an unknown speaker are skipped.
func BuildContext(history []Turn, newMessage string) []Message {
	if len(history) > ContextWindow {
		history = history[len(history)-ContextWindow:]
	}

	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: RoleSystem, Content: PersonaDirective})
	for _, t := range history {
		switch t.Speaker {
		case SpeakerUser:
			messages = append(messages, Message{Role: RoleUser, Content: t.Text})
		case SpeakerAssistant:
			messages = append(messages, Message{Role: RoleAssistant, Content: t.Text})
		}
	}
	return append(messages, Message{Role: RoleUser, Content: newMessage})
}
