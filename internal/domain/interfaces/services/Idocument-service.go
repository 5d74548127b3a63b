package Iservices

import (
	"context"

	"chat-connector/internal/domain/entities"
)

// IDocumentService supplies document text for grounding.
type IDocumentService interface {
	// ExtractText returns the text content of a document based on its MIME
	// type, or an explanatory sentinel string for unsupported types.
	ExtractText(document entities.Document) string

	// GroundedPrompt wraps the user prompt with the document-grounding
	// instruction and the truncated document text. Returns the prompt
	// unchanged when the conversation has no grounding document.
	GroundedPrompt(ctx context.Context, conversationID int64, prompt string) (string, error)
}
