package entities

import "time"

const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Conversation owns an ordered sequence of messages and documents.
// DocumentMode enables document-grounded prompting for the conversation.
type Conversation struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Title         string    `json:"title"`
	SelectedModel string    `json:"selected_model"`
	DocumentMode  bool      `json:"document_mode"`
	CreatedAt     time.Time `json:"created_at"`
}

// ChatMessage is one entry of a conversation transcript. Ordering is by
// creation time, ties broken by the auto-increment id.
type ChatMessage struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Sender         string    `json:"sender"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Document stores an uploaded grounding document or a voice recording,
// distinguished by MIME type. Lifetime follows the owning conversation.
type Document struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Filename       string    `json:"filename"`
	Data           []byte    `json:"-"`
	MimeType       string    `json:"mime_type"`
	UploadedAt     time.Time `json:"uploaded_at"`
}

// IsAudio reports whether the document is a stored voice recording.
func (d Document) IsAudio() bool {
	return d.MimeType == "audio/wav" || d.MimeType == "audio/webm"
}
