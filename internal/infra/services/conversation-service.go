package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"chat-connector/internal/domain/apperrors"
	"chat-connector/internal/domain/dto"
	"chat-connector/internal/domain/entities"
	"chat-connector/internal/domain/interfaces/repository"
	"chat-connector/internal/infra/logger"
	"chat-connector/internal/infra/provider"
)

// ConversationService is responsible for conversation CRUD glue, ownership
// checks and the model availability fallback.
type ConversationService struct {
	Store        repository.ConversationStore
	Providers    *provider.Factory
	Logger       *logger.Logger
	DefaultModel string
}

func NewConversationService(store repository.ConversationStore, providers *provider.Factory, log *logger.Logger, defaultModel string) *ConversationService {
	return &ConversationService{
		Store:        store,
		Providers:    providers,
		Logger:       log,
		DefaultModel: defaultModel,
	}
}

// Authorize loads a conversation and verifies the caller owns it.
func (cs *ConversationService) Authorize(ctx context.Context, userID, conversationID int64) (entities.Conversation, error) {
	conversation, err := cs.Store.GetConversation(ctx, conversationID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return entities.Conversation{}, apperrors.ErrUnauthorized
	}
	if err != nil {
		return entities.Conversation{}, err
	}
	if conversation.UserID != userID {
		cs.Logger.Warn(fmt.Sprintf("Unauthorized access attempt to conversation %d by user %d", conversationID, userID))
		return entities.Conversation{}, apperrors.ErrUnauthorized
	}
	return conversation, nil
}

// availableModels returns the backend's model list, substituting the
// configured default when the backend reports nothing.
func (cs *ConversationService) availableModels(ctx context.Context, llm provider.ILLMProvider) []string {
	models := llm.ListModels(ctx)
	if len(models) == 0 {
		cs.Logger.Warn(fmt.Sprintf("No models reported by %s, using default %q", llm.Name(), cs.DefaultModel))
		return []string{cs.DefaultModel}
	}
	return models
}

// EnsureModel falls back to the first available model when the selected one
// is no longer served, persisting the change.
func (cs *ConversationService) EnsureModel(ctx context.Context, conversation entities.Conversation, llm provider.ILLMProvider) (entities.Conversation, []string, error) {
	models := cs.availableModels(ctx, llm)
	if conversation.SelectedModel != "" && slices.Contains(models, conversation.SelectedModel) {
		return conversation, models, nil
	}

	cs.Logger.Warn(fmt.Sprintf("Conversation %d had model %q which is not available. Falling back to %q.",
		conversation.ID, conversation.SelectedModel, models[0]))
	conversation.SelectedModel = models[0]
	if err := cs.Store.UpdateConversation(ctx, conversation); err != nil {
		return entities.Conversation{}, nil, fmt.Errorf("persist model fallback: %w", err)
	}
	return conversation, models, nil
}

// LoadView resolves the conversation for the chat screen: the requested one
// (ownership checked) or the user's latest, created on first use.
func (cs *ConversationService) LoadView(ctx context.Context, userID, conversationID int64, serviceType string) (dto.ConversationView, error) {
	llm, err := cs.Providers.Resolve(serviceType)
	if err != nil {
		return dto.ConversationView{}, err
	}

	var conversation entities.Conversation
	if conversationID > 0 {
		conversation, err = cs.Authorize(ctx, userID, conversationID)
	} else {
		conversation, err = cs.Store.GetOrCreateConversation(ctx, userID, cs.DefaultModel)
	}
	if err != nil {
		return dto.ConversationView{}, err
	}

	conversation, models, err := cs.EnsureModel(ctx, conversation, llm)
	if err != nil {
		return dto.ConversationView{}, err
	}

	messages, err := cs.Store.ListMessages(ctx, conversation.ID)
	if err != nil {
		return dto.ConversationView{}, err
	}

	return dto.ConversationView{Conversation: conversation, Messages: messages, Models: models}, nil
}

func (cs *ConversationService) Create(ctx context.Context, userID int64, model, serviceType string) (entities.Conversation, error) {
	llm, err := cs.Providers.Resolve(serviceType)
	if err != nil {
		return entities.Conversation{}, err
	}

	models := cs.availableModels(ctx, llm)
	if model == "" || !slices.Contains(models, model) {
		if model != "" {
			cs.Logger.Warn(fmt.Sprintf("Model %q requested for new conversation is not available. Falling back to %q.", model, models[0]))
		}
		model = models[0]
	}

	cs.Logger.Info(fmt.Sprintf("Creating new conversation for user %d with model %q", userID, model))
	return cs.Store.CreateConversation(ctx, userID, "New Conversation", model)
}

func (cs *ConversationService) Rename(ctx context.Context, userID, conversationID int64, title string) error {
	conversation, err := cs.Authorize(ctx, userID, conversationID)
	if err != nil {
		return err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled Conversation"
	}
	conversation.Title = title
	return cs.Store.UpdateConversation(ctx, conversation)
}

func (cs *ConversationService) Delete(ctx context.Context, userID, conversationID int64) error {
	if _, err := cs.Authorize(ctx, userID, conversationID); err != nil {
		return err
	}
	return cs.Store.DeleteConversation(ctx, conversationID)
}

func (cs *ConversationService) SwitchModel(ctx context.Context, userID, conversationID int64, model string) error {
	conversation, err := cs.Authorize(ctx, userID, conversationID)
	if err != nil {
		return err
	}
	conversation.SelectedModel = model
	return cs.Store.UpdateConversation(ctx, conversation)
}

// EditMessage is the single explicit edit operation messages support.
func (cs *ConversationService) EditMessage(ctx context.Context, userID, messageID int64, content string) error {
	message, err := cs.Store.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if _, err := cs.Authorize(ctx, userID, message.ConversationID); err != nil {
		return err
	}
	return cs.Store.UpdateMessageContent(ctx, messageID, content)
}

// UploadDocument stores the document, enables document mode and appends the
// assistant notice message.
func (cs *ConversationService) UploadDocument(ctx context.Context, userID, conversationID int64, filename, mimeType string, data []byte) (entities.Document, error) {
	conversation, err := cs.Authorize(ctx, userID, conversationID)
	if err != nil {
		return entities.Document{}, err
	}

	document, err := cs.Store.SaveDocument(ctx, entities.Document{
		ConversationID: conversationID,
		Filename:       filename,
		Data:           data,
		MimeType:       mimeType,
	})
	if err != nil {
		return entities.Document{}, err
	}

	conversation.DocumentMode = true
	if err := cs.Store.UpdateConversation(ctx, conversation); err != nil {
		return entities.Document{}, err
	}

	notice := fmt.Sprintf("📄 Document '%s' has been uploaded. My responses will now be based only on knowledge from this document.", filename)
	if _, err := cs.Store.AppendMessage(ctx, conversationID, entities.SenderAssistant, notice); err != nil {
		return entities.Document{}, err
	}
	return document, nil
}

// ToggleDocumentMode flips the grounding flag and appends the matching
// notice message.
func (cs *ConversationService) ToggleDocumentMode(ctx context.Context, userID, conversationID int64) (dto.ToggleDocumentModeResponse, error) {
	conversation, err := cs.Authorize(ctx, userID, conversationID)
	if err != nil {
		return dto.ToggleDocumentModeResponse{}, err
	}

	conversation.DocumentMode = !conversation.DocumentMode
	if err := cs.Store.UpdateConversation(ctx, conversation); err != nil {
		return dto.ToggleDocumentModeResponse{}, err
	}

	var notice string
	if conversation.DocumentMode {
		latest, err := cs.Store.LatestDocument(ctx, conversationID, true)
		switch {
		case err == nil:
			notice = fmt.Sprintf("📄 Document mode enabled. My responses will now be based only on document: '%s'.", latest.Filename)
		case errors.Is(err, apperrors.ErrNotFound):
			notice = "📄 Document mode enabled, but no documents found. Please upload a document."
		default:
			return dto.ToggleDocumentModeResponse{}, err
		}
	} else {
		notice = "📄 Document mode disabled. I'll now use my general knowledge to answer your questions."
	}

	if _, err := cs.Store.AppendMessage(ctx, conversationID, entities.SenderAssistant, notice); err != nil {
		return dto.ToggleDocumentModeResponse{}, err
	}

	return dto.ToggleDocumentModeResponse{
		Success:      true,
		DocumentMode: conversation.DocumentMode,
		Message:      notice,
	}, nil
}
