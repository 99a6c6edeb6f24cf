package domain

import "time"

// Message is one entry of the append-only message log.
// Ownership is not stored; it depends on who is looking.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Sender         string    `json:"sender"`
	ReceiverID     string    `json:"receiver_id,omitempty"`
	Text           string    `json:"text"`
	Timestamp      string    `json:"timestamp"`
	CreatedAt      time.Time `json:"created_at"`
}

// TranscriptEntry is a message as seen by a particular viewer.
type TranscriptEntry struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	Sender    string `json:"sender"`
	IsOwn     bool   `json:"is_own"`
}

// ConversationSummary is one row of a viewer's conversation list.
type ConversationSummary struct {
	ID             int64             `json:"id"`
	Name           string            `json:"name"`
	Avatar         string            `json:"avatar"`
	LastMessage    string            `json:"last_message"`
	Timestamp      string            `json:"timestamp"`
	CounterpartyID string            `json:"counterparty_id,omitempty"`
	Messages       []TranscriptEntry `json:"messages"`
}

// ConversationDetail is a single conversation with its full transcript.
type ConversationDetail struct {
	ID             int64             `json:"id"`
	Name           string            `json:"name"`
	Avatar         string            `json:"avatar"`
	CounterpartyID string            `json:"counterparty_id,omitempty"`
	Messages       []TranscriptEntry `json:"messages"`
}

// AppendedMessage is the echo returned after a write.
type AppendedMessage struct {
	IsOwn     bool   `json:"is_own"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// MessageEvent is published after every successful message write.
type MessageEvent struct {
	Type    EventType `json:"type"`
	Message Message   `json:"message"`
}
