package client

// Role identifies the sender of a conversation turn.
type Role string

// Standard message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn in the playground history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// HistorySnapshot copies a conversation history so a request in flight is
// never affected by turns appended after submission.
func HistorySnapshot(history []Message) []Message {
	if history == nil {
		return nil
	}
	out := make([]Message, len(history))
	copy(out, history)
	return out
}
