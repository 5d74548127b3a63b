package repository

import (
	"context"

	"chat-connector/internal/domain/entities"
)

// ConversationStore is the persistence collaborator for the chat pipeline.
// Messages come back ordered by creation time, ties broken by id.
type ConversationStore interface {
	GetOrCreateConversation(ctx context.Context, userID int64, defaultModel string) (entities.Conversation, error)
	CreateConversation(ctx context.Context, userID int64, title, model string) (entities.Conversation, error)
	GetConversation(ctx context.Context, id int64) (entities.Conversation, error)
	UpdateConversation(ctx context.Context, conversation entities.Conversation) error
	DeleteConversation(ctx context.Context, id int64) error

	ListMessages(ctx context.Context, conversationID int64) ([]entities.ChatMessage, error)
	AppendMessage(ctx context.Context, conversationID int64, sender, content string) (entities.ChatMessage, error)
	GetMessage(ctx context.Context, id int64) (entities.ChatMessage, error)
	UpdateMessageContent(ctx context.Context, id int64, content string) error

	SaveDocument(ctx context.Context, document entities.Document) (entities.Document, error)
	GetDocument(ctx context.Context, id int64) (entities.Document, error)
	// LatestDocument returns the most recently uploaded document of the
	// conversation. Voice recordings are skipped when excludeAudio is set.
	LatestDocument(ctx context.Context, conversationID int64, excludeAudio bool) (entities.Document, error)
}
