package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"chat-connector/internal/domain/apperrors"
	"chat-connector/internal/domain/dto"
	"chat-connector/internal/infra/logger"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider serves any OpenAI-compatible chat completion endpoint.
type OpenAIProvider struct {
	Logger        *logger.Logger
	client        *openai.Client
	ChatTimeout   time.Duration
	StreamTimeout time.Duration
}

func NewOpenAIProvider(logger *logger.Logger, apiKey, baseURL string, chatTimeout, streamTimeout time.Duration) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	return &OpenAIProvider{
		Logger:        logger,
		client:        openai.NewClientWithConfig(clientConfig),
		ChatTimeout:   chatTimeout,
		StreamTimeout: streamTimeout,
	}
}

func (op *OpenAIProvider) Name() string { return "openai" }

func (op *OpenAIProvider) ListModels(ctx context.Context) []string {
	ctx, cancel := context.WithTimeout(ctx, listModelsTimeout)
	defer cancel()

	list, err := op.client.ListModels(ctx)
	if err != nil {
		op.Logger.Error(fmt.Sprintf("Failed to list OpenAI models: %v", err))
		return nil
	}

	models := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		models = append(models, m.ID)
	}
	return models
}

func (op *OpenAIProvider) Chat(ctx context.Context, model string, messages []dto.ChatTurnMessage) (dto.ChatTurnMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, op.ChatTimeout)
	defer cancel()

	res, err := op.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(messages),
	})
	if err != nil {
		return dto.ChatTurnMessage{}, op.wrapErr(err)
	}
	if len(res.Choices) == 0 {
		return dto.ChatTurnMessage{}, fmt.Errorf("chat completion returned no choices")
	}
	choice := res.Choices[0].Message
	return dto.ChatTurnMessage{Role: choice.Role, Content: choice.Content}, nil
}

func (op *OpenAIProvider) StreamChat(ctx context.Context, model string, messages []dto.ChatTurnMessage) <-chan Delta {
	out := make(chan Delta, 16)

	go func() {
		defer close(out)

		// Same guard split as the Ollama provider: the timeout bounds the
		// backend call, sends stay on the caller's context.
		reqCtx, cancel := context.WithTimeout(ctx, op.StreamTimeout)
		defer cancel()

		stream, err := op.client.CreateChatCompletionStream(reqCtx, openai.ChatCompletionRequest{
			Model:    model,
			Messages: toOpenAIMessages(messages),
			Stream:   true,
		})
		if err != nil {
			op.Logger.Error(fmt.Sprintf("Failed to open completion stream: %v", err))
			op.emit(ctx, out, Delta{Err: op.wrapErr(err)})
			return
		}
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				op.Logger.Error(fmt.Sprintf("Completion stream error: %v", err))
				op.emit(ctx, out, Delta{Err: op.wrapErr(err)})
				return
			}
			if len(response.Choices) == 0 {
				continue
			}
			if !op.emit(ctx, out, Delta{Text: response.Choices[0].Delta.Content}) {
				return
			}
		}
	}()

	return out
}

func (op *OpenAIProvider) emit(ctx context.Context, out chan<- Delta, delta Delta) bool {
	select {
	case out <- delta:
		return true
	case <-ctx.Done():
		return false
	}
}

func (op *OpenAIProvider) wrapErr(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apperrors.NewBackendError(apiErr.HTTPStatusCode, apiErr.Message)
	}
	return fmt.Errorf("%w: %v", apperrors.ErrBackendUnavailable, err)
}

func toOpenAIMessages(messages []dto.ChatTurnMessage) []openai.ChatCompletionMessage {
	converted := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		converted = append(converted, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return converted
}
