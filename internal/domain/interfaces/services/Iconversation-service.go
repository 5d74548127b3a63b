package Iservices

import (
	"context"

	"chat-connector/internal/domain/dto"
	"chat-connector/internal/domain/entities"
	"chat-connector/internal/infra/provider"
)

// IConversationService owns conversation CRUD glue and the model
// availability fallback.
type IConversationService interface {
	// Authorize loads the conversation and verifies ownership.
	Authorize(ctx context.Context, userID, conversationID int64) (entities.Conversation, error)

	// EnsureModel verifies the conversation's selected model is still served
	// by the backend, falling back to the first available model and
	// persisting the change when it is not.
	EnsureModel(ctx context.Context, conversation entities.Conversation, llm provider.ILLMProvider) (entities.Conversation, []string, error)

	LoadView(ctx context.Context, userID, conversationID int64, serviceType string) (dto.ConversationView, error)
	Create(ctx context.Context, userID int64, model, serviceType string) (entities.Conversation, error)
	Rename(ctx context.Context, userID, conversationID int64, title string) error
	Delete(ctx context.Context, userID, conversationID int64) error
	SwitchModel(ctx context.Context, userID, conversationID int64, model string) error
	EditMessage(ctx context.Context, userID, messageID int64, content string) error
	UploadDocument(ctx context.Context, userID, conversationID int64, filename, mimeType string, data []byte) (entities.Document, error)
	ToggleDocumentMode(ctx context.Context, userID, conversationID int64) (dto.ToggleDocumentModeResponse, error)
}
