package model

import "time"

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// ConversationTurn is one message of the per-meeting chat history.
// Append-only; ordering by CreatedAt defines the history.
type ConversationTurn struct {
	ID        string    `json:"id"`
	MeetingID string    `json:"meeting_id"`
	Sender    Sender    `json:"sender"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
