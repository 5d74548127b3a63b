package services

import (
	"context"
	"fmt"

	"chat-connector/internal/domain/dto"
	"chat-connector/internal/domain/entities"
	Iservices "chat-connector/internal/domain/interfaces/services"
	"chat-connector/internal/infra/logger"

	"github.com/pkoukk/tiktoken-go"
)

// PromptBuilder assembles the message history sent to a backend: prior
// messages, the (optionally document-grounded) user prompt, trimmed to the
// token budget oldest-first.
type PromptBuilder struct {
	Documents   Iservices.IDocumentService
	Logger      *logger.Logger
	TokenBudget int
}

func NewPromptBuilder(documents Iservices.IDocumentService, log *logger.Logger, tokenBudget int) *PromptBuilder {
	return &PromptBuilder{Documents: documents, Logger: log, TokenBudget: tokenBudget}
}

// Build returns the effective history for a turn. prior must not yet contain
// the prompt being submitted.
func (pb *PromptBuilder) Build(ctx context.Context, conversation entities.Conversation, prior []entities.ChatMessage, prompt string) ([]dto.ChatTurnMessage, error) {
	effectivePrompt := prompt
	if conversation.DocumentMode {
		grounded, err := pb.Documents.GroundedPrompt(ctx, conversation.ID, prompt)
		if err != nil {
			return nil, fmt.Errorf("build grounded prompt: %w", err)
		}
		effectivePrompt = grounded
	}

	history := make([]dto.ChatTurnMessage, 0, len(prior)+1)
	for _, m := range prior {
		history = append(history, dto.ChatTurnMessage{Role: roleFor(m.Sender), Content: m.Content})
	}
	history = append(history, dto.ChatTurnMessage{Role: entities.SenderUser, Content: effectivePrompt})

	return pb.trimToBudget(history, conversation.SelectedModel), nil
}

// BuildFromStored returns the history when the latest user prompt is already
// persisted, as in the voice flow.
func (pb *PromptBuilder) BuildFromStored(conversation entities.Conversation, messages []entities.ChatMessage) []dto.ChatTurnMessage {
	history := make([]dto.ChatTurnMessage, 0, len(messages))
	for _, m := range messages {
		history = append(history, dto.ChatTurnMessage{Role: roleFor(m.Sender), Content: m.Content})
	}
	return pb.trimToBudget(history, conversation.SelectedModel)
}

// trimToBudget drops the oldest messages until the history fits the token
// budget. When the tokenizer cannot serve the model the history is sent
// untrimmed; local models are not in tiktoken's registry.
func (pb *PromptBuilder) trimToBudget(history []dto.ChatTurnMessage, model string) []dto.ChatTurnMessage {
	if pb.TokenBudget <= 0 || len(history) == 0 {
		return history
	}

	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		pb.Logger.Debug(fmt.Sprintf("No tokenizer for model %q, skipping history trim: %v", model, err))
		return history
	}

	for len(history) > 1 {
		total := 0
		for _, m := range history {
			total += len(encoding.Encode(m.Content, nil, nil))
		}
		if total < pb.TokenBudget {
			break
		}
		history = history[1:]
		pb.Logger.Debug("History trimmed due to token limit")
	}
	return history
}

func roleFor(sender string) string {
	if sender == entities.SenderUser {
		return "user"
	}
	return "assistant"
}
