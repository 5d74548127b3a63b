package services

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"chat-connector/internal/domain/apperrors"
	"chat-connector/internal/domain/entities"
	"chat-connector/internal/domain/interfaces/repository"
	"chat-connector/internal/infra/logger"
)

// groundingInstruction is prepended ahead of the document text when a
// conversation is in document mode.
const groundingInstruction = "Answer the question using ONLY the information from the document below. " +
	"If the answer is not contained in the document, say that the document does not cover it."

// DocumentService builds document-grounded prompts.
type DocumentService struct {
	Store        repository.ConversationStore
	Logger       *logger.Logger
	ContextLimit int
}

func NewDocumentService(store repository.ConversationStore, log *logger.Logger, contextLimit int) *DocumentService {
	return &DocumentService{Store: store, Logger: log, ContextLimit: contextLimit}
}

// ExtractText returns the document's text content based on MIME type. Binary
// formats whose parsing is out of scope yield a sentinel string so the model
// still gets an explanation instead of raw bytes.
func (ds *DocumentService) ExtractText(document entities.Document) string {
	switch document.MimeType {
	case "text/plain":
		if !utf8.Valid(document.Data) {
			return fmt.Sprintf("Error extracting text: document %q is not valid UTF-8", document.Filename)
		}
		return string(document.Data)
	default:
		return fmt.Sprintf("Content extraction not supported for %s. Using filename only: %s", document.MimeType, document.Filename)
	}
}

// GroundedPrompt wraps the prompt as instruction + truncated document text +
// user prompt. Truncation is a plain prefix cut at the character budget.
func (ds *DocumentService) GroundedPrompt(ctx context.Context, conversationID int64, prompt string) (string, error) {
	document, err := ds.Store.LatestDocument(ctx, conversationID, true)
	if errors.Is(err, apperrors.ErrNotFound) {
		ds.Logger.Warn(fmt.Sprintf("Document mode enabled for conversation %d but no document found", conversationID))
		return prompt, nil
	}
	if err != nil {
		return "", fmt.Errorf("load grounding document: %w", err)
	}

	text := truncateChars(ds.ExtractText(document), ds.ContextLimit)
	return fmt.Sprintf("%s\n%s\n%s", groundingInstruction, text, prompt), nil
}

// truncateChars cuts the text after limit characters. The cut is
// deterministic and not word-aware.
func truncateChars(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
