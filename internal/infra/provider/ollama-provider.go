package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"chat-connector/internal/domain/apperrors"
	"chat-connector/internal/domain/dto"
	"chat-connector/internal/infra/logger"
)

const listModelsTimeout = 5 * time.Second

// OllamaProvider talks to the Ollama HTTP API directly.
type OllamaProvider struct {
	Logger        *logger.Logger
	HttpClient    *http.Client
	Host          string
	ChatTimeout   time.Duration
	StreamTimeout time.Duration
}

func NewOllamaProvider(logger *logger.Logger, httpClient *http.Client, host string, chatTimeout, streamTimeout time.Duration) *OllamaProvider {
	return &OllamaProvider{
		Logger:        logger,
		HttpClient:    httpClient,
		Host:          host,
		ChatTimeout:   chatTimeout,
		StreamTimeout: streamTimeout,
	}
}

func (op *OllamaProvider) Name() string { return "ollama" }

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

type ollamaChatRequest struct {
	Model    string                `json:"model"`
	Messages []dto.ChatTurnMessage `json:"messages"`
	Stream   bool                  `json:"stream"`
}

type ollamaChatChunk struct {
	Message *dto.ChatTurnMessage `json:"message"`
	Done    bool                 `json:"done"`
}

// ListModels queries GET /api/tags. Any failure yields an empty list.
func (op *OllamaProvider) ListModels(ctx context.Context) []string {
	ctx, cancel := context.WithTimeout(ctx, listModelsTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/tags", op.Host), nil)
	if err != nil {
		op.Logger.Error(fmt.Sprintf("Failed to create list models request: %v", err))
		return nil
	}

	res, err := op.HttpClient.Do(req)
	if err != nil {
		op.Logger.Error(fmt.Sprintf("Failed to list Ollama models: %v", err))
		return nil
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		op.Logger.Error(fmt.Sprintf("Failed to list models: %d - %s", res.StatusCode, string(body)))
		return nil
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(res.Body).Decode(&tags); err != nil {
		op.Logger.Error(fmt.Sprintf("Failed to decode models response: %v", err))
		return nil
	}

	models := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		if m.Name != "" {
			models = append(models, m.Name)
		}
	}
	op.Logger.Info(fmt.Sprintf("Found %d Ollama models", len(models)))
	return models
}

// Chat performs a single blocking call to POST /api/chat.
func (op *OllamaProvider) Chat(ctx context.Context, model string, messages []dto.ChatTurnMessage) (dto.ChatTurnMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, op.ChatTimeout)
	defer cancel()

	res, err := op.postChat(ctx, model, messages, false)
	if err != nil {
		return dto.ChatTurnMessage{}, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		op.Logger.Error(fmt.Sprintf("Ollama API error: %d - %s", res.StatusCode, string(body)))
		return dto.ChatTurnMessage{}, apperrors.NewBackendError(res.StatusCode, string(body))
	}

	var chunk ollamaChatChunk
	if err := json.NewDecoder(res.Body).Decode(&chunk); err != nil {
		return dto.ChatTurnMessage{}, fmt.Errorf("decode chat response: %w", err)
	}
	if chunk.Message == nil {
		return dto.ChatTurnMessage{}, fmt.Errorf("chat response carried no message")
	}
	return *chunk.Message, nil
}

// StreamChat performs POST /api/chat with stream=true and forwards each
// newline-delimited chunk's message content. Failures are delivered in-band
// as a terminal Delta with Err set.
func (op *OllamaProvider) StreamChat(ctx context.Context, model string, messages []dto.ChatTurnMessage) <-chan Delta {
	out := make(chan Delta, 16)

	go func() {
		defer close(out)

		// The timeout bounds the backend call only. Sends are guarded by the
		// caller's context: an expired timeout surfaces as a read error below
		// and must not race the terminal Err delta away.
		reqCtx, cancel := context.WithTimeout(ctx, op.StreamTimeout)
		defer cancel()

		res, err := op.postChat(reqCtx, model, messages, true)
		if err != nil {
			op.emit(ctx, out, Delta{Err: err})
			return
		}
		defer res.Body.Close()

		if res.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(res.Body)
			op.Logger.Error(fmt.Sprintf("Ollama streaming API error: %d - %s", res.StatusCode, string(body)))
			op.emit(ctx, out, Delta{Err: apperrors.NewBackendError(res.StatusCode, string(body))})
			return
		}

		scanner := bufio.NewScanner(res.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var chunk ollamaChatChunk
			if err := json.Unmarshal(line, &chunk); err != nil {
				op.Logger.Warn(fmt.Sprintf("Failed to decode JSON from stream line: %.100s", string(line)))
				continue
			}
			if chunk.Message == nil {
				op.Logger.Warn(fmt.Sprintf("Unexpected chunk format: %.200s", string(line)))
				continue
			}
			if !op.emit(ctx, out, Delta{Text: chunk.Message.Content}) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			op.Logger.Error(fmt.Sprintf("Error reading Ollama stream: %v", err))
			op.emit(ctx, out, Delta{Err: fmt.Errorf("%w: %v", apperrors.ErrBackendUnavailable, err)})
		}
	}()

	return out
}

func (op *OllamaProvider) postChat(ctx context.Context, model string, messages []dto.ChatTurnMessage, stream bool) (*http.Response, error) {
	payload, err := json.Marshal(ollamaChatRequest{Model: model, Messages: messages, Stream: stream})
	if err != nil {
		return nil, fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/api/chat", op.Host), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := op.HttpClient.Do(req)
	if err != nil {
		op.Logger.Error(fmt.Sprintf("Ollama request failed: %v", err))
		return nil, fmt.Errorf("%w: %v", apperrors.ErrBackendUnavailable, err)
	}
	return res, nil
}

func (op *OllamaProvider) emit(ctx context.Context, out chan<- Delta, delta Delta) bool {
	select {
	case out <- delta:
		return true
	case <-ctx.Done():
		return false
	}
}
