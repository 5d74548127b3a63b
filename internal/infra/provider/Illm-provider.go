package provider

import (
	"context"

	"chat-connector/internal/domain/dto"
)

// Delta is one element of a streaming chat response. A terminal failure is
// delivered as a Delta with Err set; the channel is closed afterwards.
type Delta struct {
	Text string
	Err  error
}

// ILLMProvider is the uniform capability set over inference backends.
type ILLMProvider interface {
	Name() string

	// ListModels returns the models the backend serves. It never fails:
	// on any error it returns an empty list and the caller substitutes
	// the configured default.
	ListModels(ctx context.Context) []string

	// Chat performs a single blocking completion.
	Chat(ctx context.Context, model string, messages []dto.ChatTurnMessage) (dto.ChatTurnMessage, error)

	// StreamChat starts a streaming completion. The returned channel is
	// closed at end of stream; it is restartable only by calling again.
	StreamChat(ctx context.Context, model string, messages []dto.ChatTurnMessage) <-chan Delta
}

// ISpeechProvider transcribes canonical WAV audio.
type ISpeechProvider interface {
	Transcribe(ctx context.Context, audioPath string, language string) (dto.Transcription, error)
}
