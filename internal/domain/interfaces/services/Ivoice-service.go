package Iservices

import (
	"context"

	"chat-connector/internal/domain/dto"
	"chat-connector/internal/domain/entities"
)

// IVoiceService runs the voice capture pipeline: temp-file lifecycle,
// conversion to canonical WAV, transcription, persistence, and the AI turn.
type IVoiceService interface {
	ProcessVoiceUpload(ctx context.Context, userID, conversationID int64, audio []byte, language, serviceType string) (dto.VoiceUploadResponse, error)

	// GetRecording returns a stored voice recording owned by the caller.
	GetRecording(ctx context.Context, userID, documentID int64) (entities.Document, error)
}
