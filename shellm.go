// Package shellm defines the types shared by the shellm pipeline: chat
// messages exchanged with the model gateway, the structured Answer produced in
// command mode, and the error taxonomy surfaced to the CLI.
package shellm

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation sent to the model.
type Message struct {
	Role    Role
	Content string
}

// Answer is the structured reply of command mode. A value handed out by the
// answer package always has a non-empty RecommendCommand.
type Answer struct {
	// RecommendCommand is the single shell command the model recommends.
	RecommendCommand string `json:"recommendCommand"`
}
