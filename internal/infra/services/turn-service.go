package services

import (
	"context"
	"fmt"
	"strings"

	"chat-connector/internal/domain/apperrors"
	"chat-connector/internal/domain/entities"
	"chat-connector/internal/domain/interfaces/repository"
	Iservices "chat-connector/internal/domain/interfaces/services"
	"chat-connector/internal/infra/logger"
	"chat-connector/internal/infra/provider"
	"chat-connector/internal/infra/stream"

	"github.com/sirupsen/logrus"
)

// turnState tracks the orchestrator's progress through one turn.
type turnState int

const (
	turnIdle turnState = iota
	turnSubmitted
	turnStreaming
	turnFinalizing
	turnCompleted
	turnAborted
)

const emptyTurnPlaceholderText = "Response was stopped before any content was generated."

// TurnService is the orchestrator for one user-prompt-to-assistant-reply
// cycle: it persists the prompt, drives the framed backend stream, supports
// cooperative cancellation through the registry, and persists the final or
// partial assistant message exactly once.
type TurnService struct {
	Store         repository.ConversationStore
	Providers     *provider.Factory
	Registry      *TurnRegistry
	Conversations Iservices.IConversationService
	Prompt        *PromptBuilder
	Logger        *logger.Logger

	// EmptyTurnPlaceholder persists a placeholder assistant message when a
	// cancelled turn produced no text at all.
	EmptyTurnPlaceholder bool
}

func NewTurnService(
	store repository.ConversationStore,
	providers *provider.Factory,
	registry *TurnRegistry,
	conversations Iservices.IConversationService,
	prompt *PromptBuilder,
	log *logger.Logger,
	emptyTurnPlaceholder bool,
) *TurnService {
	return &TurnService{
		Store:                store,
		Providers:            providers,
		Registry:             registry,
		Conversations:        conversations,
		Prompt:               prompt,
		Logger:               log,
		EmptyTurnPlaceholder: emptyTurnPlaceholder,
	}
}

// StreamTurn runs the full state machine. Errors returned here happened
// before any event was emitted; once streaming starts, failures surface as
// Error events through emit and the turn still finalizes.
func (ts *TurnService) StreamTurn(ctx context.Context, userID, conversationID int64, prompt, serviceType string, emit Iservices.EmitFunc) error {
	llm, err := ts.Providers.Resolve(serviceType)
	if err != nil {
		return err
	}

	conversation, err := ts.Conversations.Authorize(ctx, userID, conversationID)
	if err != nil {
		return err
	}
	conversation, _, err = ts.Conversations.EnsureModel(ctx, conversation, llm)
	if err != nil {
		return err
	}

	prior, err := ts.Store.ListMessages(ctx, conversationID)
	if err != nil {
		return err
	}

	// Idle -> Submitted: the user message is durable before streaming starts.
	if _, err := ts.Store.AppendMessage(ctx, conversationID, entities.SenderUser, prompt); err != nil {
		return fmt.Errorf("persist user message: %w", err)
	}

	history, err := ts.Prompt.Build(ctx, conversation, prior, prompt)
	if err != nil {
		return err
	}

	key := TurnKey{UserID: userID, ConversationID: conversationID}
	generation := ts.Registry.Register(key)
	defer ts.Registry.Clear(key, generation)

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ts.Logger.Info(fmt.Sprintf("Streaming from %s model %s", llm.Name(), conversation.SelectedModel), logrus.Fields{
		"turn": key.String(),
	})

	events := stream.Frame(streamCtx, llm.StreamChat(streamCtx, conversation.SelectedModel, history))

	state := turnStreaming
	var accumulated string
	for event := range events {
		if event.Type == stream.EventTextDelta {
			accumulated += event.Text
		}
		if err := emit(event); err != nil {
			// Client went away; stop consuming and keep what we have.
			ts.Logger.Warn(fmt.Sprintf("Transport write failed, aborting turn %s: %v", key, err))
			state = turnAborted
			cancel()
			break
		}
		if event.Type == stream.EventEnd {
			break
		}
		if ts.Registry.IsStopRequested(key) {
			ts.Logger.Info(fmt.Sprintf("Stop requested for turn %s, finalizing with partial content", key))
			state = turnAborted
			cancel()
			break
		}
	}

	if state != turnAborted {
		state = turnFinalizing
	}
	ts.finalize(ctx, key, conversationID, accumulated, state == turnAborted)
	return nil
}

// finalize persists the assistant message exactly once. A cancelled turn is
// not a failed turn: partial content is stored as a valid message. Database
// failures here are logged, not surfaced; the client already saw the text.
func (ts *TurnService) finalize(ctx context.Context, key TurnKey, conversationID int64, content string, aborted bool) {
	if strings.TrimSpace(content) == "" {
		if aborted && ts.EmptyTurnPlaceholder {
			if _, err := ts.Store.AppendMessage(ctx, conversationID, entities.SenderAssistant, emptyTurnPlaceholderText); err != nil {
				ts.Logger.Error(fmt.Sprintf("Failed to save placeholder message for turn %s: %v", key, err))
			}
		}
		return
	}

	if _, err := ts.Store.AppendMessage(ctx, conversationID, entities.SenderAssistant, content); err != nil {
		ts.Logger.Error(fmt.Sprintf("Failed to save assistant message for turn %s: %v", key, err))
	}
}

// RespondBlocking generates an assistant reply for the stored history in one
// call, used by the voice flow where the transcript is already persisted.
func (ts *TurnService) RespondBlocking(ctx context.Context, userID, conversationID int64, serviceType string) (string, error) {
	llm, err := ts.Providers.Resolve(serviceType)
	if err != nil {
		return "", err
	}

	conversation, err := ts.Conversations.Authorize(ctx, userID, conversationID)
	if err != nil {
		return "", err
	}
	conversation, _, err = ts.Conversations.EnsureModel(ctx, conversation, llm)
	if err != nil {
		return "", err
	}

	messages, err := ts.Store.ListMessages(ctx, conversationID)
	if err != nil {
		return "", err
	}

	reply, err := llm.Chat(ctx, conversation.SelectedModel, ts.Prompt.BuildFromStored(conversation, messages))
	if err != nil {
		return "", err
	}

	if _, err := ts.Store.AppendMessage(ctx, conversationID, entities.SenderAssistant, reply.Content); err != nil {
		// Best-effort durability: the reply is still returned to the caller.
		ts.Logger.Error(fmt.Sprintf("Failed to save assistant message for conversation %d: %v", conversationID, err))
	}
	return reply.Content, nil
}

// RequestStop flags the caller's in-flight turn for cancellation.
func (ts *TurnService) RequestStop(ctx context.Context, userID, conversationID int64) error {
	if _, err := ts.Conversations.Authorize(ctx, userID, conversationID); err != nil {
		return err
	}

	key := TurnKey{UserID: userID, ConversationID: conversationID}
	if !ts.Registry.RequestStop(key) {
		return apperrors.ErrNoActiveTurn
	}
	ts.Logger.Info(fmt.Sprintf("Set stop flag for turn %s", key))
	return nil
}
