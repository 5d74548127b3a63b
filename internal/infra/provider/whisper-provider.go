package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"chat-connector/internal/domain/dto"
	"chat-connector/internal/infra/logger"
)

// languageCodes maps the UI language hints to whisper language codes.
var languageCodes = map[string]string{
	"english": "en",
	"persian": "fa",
}

// WhisperProvider calls a whisper-server style transcription endpoint with a
// multipart upload of the canonical WAV file.
type WhisperProvider struct {
	Logger     *logger.Logger
	HttpClient *http.Client
	Host       string
}

func NewWhisperProvider(logger *logger.Logger, httpClient *http.Client, host string) *WhisperProvider {
	return &WhisperProvider{Logger: logger, HttpClient: httpClient, Host: host}
}

func (wp *WhisperProvider) Transcribe(ctx context.Context, audioPath string, language string) (dto.Transcription, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return dto.Transcription{}, fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return dto.Transcription{}, fmt.Errorf("create multipart file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return dto.Transcription{}, fmt.Errorf("copy audio into request: %w", err)
	}

	// Only pass a language when the hint maps to a known code; otherwise
	// the backend detects it.
	if code, ok := languageCodes[language]; ok {
		if err := writer.WriteField("language", code); err != nil {
			return dto.Transcription{}, fmt.Errorf("write language field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return dto.Transcription{}, fmt.Errorf("close multipart body: %w", err)
	}

	url := fmt.Sprintf("%s/inference", wp.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return dto.Transcription{}, fmt.Errorf("create transcription request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	res, err := wp.HttpClient.Do(req)
	if err != nil {
		wp.Logger.Error(fmt.Sprintf("Transcription request failed: %v", err))
		return dto.Transcription{}, fmt.Errorf("transcription request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		resBody, _ := io.ReadAll(res.Body)
		wp.Logger.Error(fmt.Sprintf("Transcription backend returned %d: %s", res.StatusCode, string(resBody)))
		return dto.Transcription{}, fmt.Errorf("transcription backend returned status %d", res.StatusCode)
	}

	var result dto.Transcription
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return dto.Transcription{}, fmt.Errorf("decode transcription response: %w", err)
	}
	if result.Language == "" {
		result.Language = languageCodes[language]
	}
	return result, nil
}
