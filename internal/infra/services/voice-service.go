package services

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"chat-connector/internal/domain/apperrors"
	"chat-connector/internal/domain/dto"
	"chat-connector/internal/domain/entities"
	"chat-connector/internal/domain/interfaces/repository"
	Iservices "chat-connector/internal/domain/interfaces/services"
	"chat-connector/internal/infra/logger"
	"chat-connector/internal/infra/provider"

	"github.com/google/uuid"
)

// VoiceService runs the voice capture pipeline: scoped temp files, ffmpeg
// conversion to the canonical format (mono 16-bit PCM 16kHz WAV),
// transcription, persistence of the recording and transcript, and the AI turn.
type VoiceService struct {
	Store         repository.ConversationStore
	Speech        provider.ISpeechProvider
	Turns         Iservices.ITurnService
	Conversations Iservices.IConversationService
	Logger        *logger.Logger
	FFmpegBin     string

	// convert is swappable in tests; defaults to ffmpeg.
	convert func(ctx context.Context, src, dst string) error
}

func NewVoiceService(
	store repository.ConversationStore,
	speech provider.ISpeechProvider,
	turns Iservices.ITurnService,
	conversations Iservices.IConversationService,
	log *logger.Logger,
	ffmpegBin string,
) *VoiceService {
	vs := &VoiceService{
		Store:         store,
		Speech:        speech,
		Turns:         turns,
		Conversations: conversations,
		Logger:        log,
		FFmpegBin:     ffmpegBin,
	}
	vs.convert = vs.runFFmpeg
	return vs
}

// ProcessVoiceUpload handles one uploaded audio blob end to end. A failed AI
// turn after a successful transcription still reports success with the error
// attached, matching the transport contract.
func (vs *VoiceService) ProcessVoiceUpload(ctx context.Context, userID, conversationID int64, audio []byte, language, serviceType string) (dto.VoiceUploadResponse, error) {
	if _, err := vs.Conversations.Authorize(ctx, userID, conversationID); err != nil {
		return dto.VoiceUploadResponse{}, err
	}

	wavPath, cleanup, err := vs.prepareCanonicalAudio(ctx, audio)
	if err != nil {
		return dto.VoiceUploadResponse{}, err
	}
	defer cleanup()

	transcription, err := vs.Speech.Transcribe(ctx, wavPath, language)
	if err != nil {
		return dto.VoiceUploadResponse{}, fmt.Errorf("transcribe audio: %w", err)
	}
	transcription.Text = strings.TrimSpace(transcription.Text)
	if transcription.Text == "" {
		return dto.VoiceUploadResponse{}, apperrors.ErrEmptyTranscription
	}
	vs.Logger.Info(fmt.Sprintf("Transcription successful. Detected language: %s. Text: %.80s", transcription.Language, transcription.Text))

	wavData, err := os.ReadFile(wavPath)
	if err != nil {
		return dto.VoiceUploadResponse{}, fmt.Errorf("read converted audio: %w", err)
	}
	if _, err := vs.Store.SaveDocument(ctx, entities.Document{
		ConversationID: conversationID,
		Filename:       fmt.Sprintf("voice-%s.wav", uuid.NewString()),
		Data:           wavData,
		MimeType:       "audio/wav",
	}); err != nil {
		return dto.VoiceUploadResponse{}, fmt.Errorf("store voice recording: %w", err)
	}

	// The display message keeps the voice marker; the model sees the
	// transcript via the stored history.
	userMessage, err := vs.Store.AppendMessage(ctx, conversationID, entities.SenderUser, "🎤: "+transcription.Text)
	if err != nil {
		return dto.VoiceUploadResponse{}, fmt.Errorf("persist transcript message: %w", err)
	}

	response := dto.VoiceUploadResponse{
		Success:          true,
		Transcription:    userMessage.Content,
		MessageID:        userMessage.ID,
		DetectedLanguage: transcription.Language,
	}

	aiResponse, err := vs.Turns.RespondBlocking(ctx, userID, conversationID, serviceType)
	if err != nil {
		vs.Logger.Error(fmt.Sprintf("Error getting AI response for voice turn: %v", err))
		response.Error = fmt.Sprintf("Error getting AI response: %v", err)
		return response, nil
	}
	response.AIResponse = aiResponse
	return response, nil
}

// GetRecording returns a stored voice recording after an ownership check.
func (vs *VoiceService) GetRecording(ctx context.Context, userID, documentID int64) (entities.Document, error) {
	document, err := vs.Store.GetDocument(ctx, documentID)
	if err != nil {
		return entities.Document{}, err
	}
	if _, err := vs.Conversations.Authorize(ctx, userID, document.ConversationID); err != nil {
		return entities.Document{}, err
	}
	if !document.IsAudio() {
		return entities.Document{}, apperrors.ErrNotFound
	}
	return document, nil
}

// prepareCanonicalAudio writes the blob to a scoped temp file and converts
// it to canonical WAV. The returned cleanup removes both files and is safe
// on every exit path.
func (vs *VoiceService) prepareCanonicalAudio(ctx context.Context, audio []byte) (string, func(), error) {
	dir := os.TempDir()
	rawPath := filepath.Join(dir, fmt.Sprintf("voice-upload-%s.webm", uuid.NewString()))
	wavPath := rawPath + ".converted.wav"

	cleanup := func() {
		for _, path := range []string{rawPath, wavPath} {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				vs.Logger.Warn(fmt.Sprintf("Error removing temp file %s: %v", path, err))
			}
		}
	}

	if err := os.WriteFile(rawPath, audio, 0600); err != nil {
		return "", func() {}, fmt.Errorf("write temp audio file: %w", err)
	}
	vs.Logger.Info(fmt.Sprintf("Saved temporary voice file to %s", rawPath))

	if err := vs.convert(ctx, rawPath, wavPath); err != nil {
		cleanup()
		return "", func() {}, err
	}

	info, err := os.Stat(wavPath)
	if err != nil || info.Size() == 0 {
		cleanup()
		vs.Logger.Error("Converted file is empty or does not exist")
		return "", func() {}, apperrors.ErrConversionFailed
	}

	return wavPath, cleanup, nil
}

// runFFmpeg converts to mono, 16-bit PCM, 16kHz WAV as the transcription
// backend requires.
func (vs *VoiceService) runFFmpeg(ctx context.Context, src, dst string) error {
	if _, err := exec.LookPath(vs.FFmpegBin); err != nil {
		vs.Logger.Error("FFmpeg is not installed. Cannot convert audio format.")
		return apperrors.ErrConversionFailed
	}

	cmd := exec.CommandContext(ctx, vs.FFmpegBin,
		"-y", "-i", src,
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-f", "wav",
		dst,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		vs.Logger.Error(fmt.Sprintf("FFmpeg conversion failed: %v: %.200s", err, string(output)))
		return apperrors.ErrConversionFailed
	}
	return nil
}
