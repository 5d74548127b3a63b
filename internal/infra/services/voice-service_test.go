package services

import (
	"context"
	"errors"
	"os"
	"testing"

	"chat-connector/internal/domain/apperrors"
	"chat-connector/internal/domain/dto"
	"chat-connector/internal/domain/entities"
	Iservices "chat-connector/internal/domain/interfaces/services"

	"github.com/stretchr/testify/require"
)

type fakeSpeech struct {
	transcription dto.Transcription
	err           error
	gotPath       string
	gotLanguage   string
}

func (f *fakeSpeech) Transcribe(_ context.Context, audioPath, language string) (dto.Transcription, error) {
	f.gotPath = audioPath
	f.gotLanguage = language
	return f.transcription, f.err
}

type fakeTurns struct {
	reply string
	err   error
}

func (f *fakeTurns) StreamTurn(context.Context, int64, int64, string, string, Iservices.EmitFunc) error {
	return nil
}

func (f *fakeTurns) RespondBlocking(context.Context, int64, int64, string) (string, error) {
	return f.reply, f.err
}

func (f *fakeTurns) RequestStop(context.Context, int64, int64) error { return nil }

type voiceFixture struct {
	service *VoiceService
	store   *fakeStore
	speech  *fakeSpeech
	turns   *fakeTurns

	// temp file paths seen by the conversion step.
	src, dst string
}

func newVoiceFixture(t *testing.T) *voiceFixture {
	t.Helper()

	store := newFakeStore()
	log := newTestLogger()
	speech := &fakeSpeech{transcription: dto.Transcription{Text: "hello world", Language: "en"}}
	turns := &fakeTurns{reply: "spoken reply"}
	conversations := NewConversationService(store, newFakeFactory(newFakeLLM([]string{"m1"})), log, "m1")

	fx := &voiceFixture{store: store, speech: speech, turns: turns}
	fx.service = NewVoiceService(store, speech, turns, conversations, log, "ffmpeg")
	fx.service.convert = func(_ context.Context, src, dst string) error {
		fx.src, fx.dst = src, dst
		return os.WriteFile(dst, []byte("RIFFwavdata"), 0600)
	}
	return fx
}

func (fx *voiceFixture) requireTempFilesGone(t *testing.T) {
	t.Helper()
	for _, path := range []string{fx.src, fx.dst} {
		if path == "" {
			continue
		}
		_, err := os.Stat(path)
		require.True(t, os.IsNotExist(err), "temp file %s should be removed", path)
	}
}

func TestProcessVoiceUpload_FullPipeline(t *testing.T) {
	fx := newVoiceFixture(t)
	conversation := fx.store.addConversation(1, "m1")

	resp, err := fx.service.ProcessVoiceUpload(context.Background(), 1, conversation.ID, []byte("webm-bytes"), "english", "")
	require.NoError(t, err)

	require.True(t, resp.Success)
	require.Equal(t, "🎤: hello world", resp.Transcription)
	require.Equal(t, "spoken reply", resp.AIResponse)
	require.Equal(t, "en", resp.DetectedLanguage)
	require.Empty(t, resp.Error)
	require.NotZero(t, resp.MessageID)

	// The converted WAV is what went to transcription and what got stored.
	require.Equal(t, fx.dst, fx.speech.gotPath)
	recording, err := fx.store.LatestDocument(context.Background(), conversation.ID, false)
	require.NoError(t, err)
	require.True(t, recording.IsAudio())
	require.Equal(t, []byte("RIFFwavdata"), recording.Data)

	messages := fx.store.messagesFor(conversation.ID)
	require.Len(t, messages, 1)
	require.Equal(t, entities.SenderUser, messages[0].Sender)
	require.Equal(t, "🎤: hello world", messages[0].Content)

	fx.requireTempFilesGone(t)
}

func TestProcessVoiceUpload_EmptyTranscription(t *testing.T) {
	fx := newVoiceFixture(t)
	fx.speech.transcription = dto.Transcription{Text: ""}
	conversation := fx.store.addConversation(1, "m1")

	_, err := fx.service.ProcessVoiceUpload(context.Background(), 1, conversation.ID, []byte("webm"), "english", "")
	require.ErrorIs(t, err, apperrors.ErrEmptyTranscription)

	require.Empty(t, fx.store.messagesFor(conversation.ID))
	_, err = fx.store.LatestDocument(context.Background(), conversation.ID, false)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	fx.requireTempFilesGone(t)
}

func TestProcessVoiceUpload_WhitespaceTranscriptionIsEmpty(t *testing.T) {
	fx := newVoiceFixture(t)
	fx.speech.transcription = dto.Transcription{Text: " \n "}
	conversation := fx.store.addConversation(1, "m1")

	_, err := fx.service.ProcessVoiceUpload(context.Background(), 1, conversation.ID, []byte("webm"), "english", "")
	require.ErrorIs(t, err, apperrors.ErrEmptyTranscription)
	require.Empty(t, fx.store.messagesFor(conversation.ID))
}

func TestProcessVoiceUpload_TranscriptIsTrimmed(t *testing.T) {
	fx := newVoiceFixture(t)
	fx.speech.transcription = dto.Transcription{Text: "  hello world \n", Language: "en"}
	conversation := fx.store.addConversation(1, "m1")

	resp, err := fx.service.ProcessVoiceUpload(context.Background(), 1, conversation.ID, []byte("webm"), "english", "")
	require.NoError(t, err)
	require.Equal(t, "🎤: hello world", resp.Transcription)

	messages := fx.store.messagesFor(conversation.ID)
	require.Len(t, messages, 1)
	require.Equal(t, "🎤: hello world", messages[0].Content)
}

func TestProcessVoiceUpload_ConversionFailure(t *testing.T) {
	fx := newVoiceFixture(t)
	fx.service.convert = func(_ context.Context, src, dst string) error {
		fx.src, fx.dst = src, dst
		return apperrors.ErrConversionFailed
	}
	conversation := fx.store.addConversation(1, "m1")

	_, err := fx.service.ProcessVoiceUpload(context.Background(), 1, conversation.ID, []byte("webm"), "english", "")
	require.ErrorIs(t, err, apperrors.ErrConversionFailed)
	fx.requireTempFilesGone(t)
}

func TestProcessVoiceUpload_EmptyConvertedOutput(t *testing.T) {
	fx := newVoiceFixture(t)
	fx.service.convert = func(_ context.Context, src, dst string) error {
		fx.src, fx.dst = src, dst
		return os.WriteFile(dst, nil, 0600)
	}
	conversation := fx.store.addConversation(1, "m1")

	_, err := fx.service.ProcessVoiceUpload(context.Background(), 1, conversation.ID, []byte("webm"), "english", "")
	require.ErrorIs(t, err, apperrors.ErrConversionFailed)
	fx.requireTempFilesGone(t)
}

func TestProcessVoiceUpload_AIFailureStillReportsSuccess(t *testing.T) {
	fx := newVoiceFixture(t)
	fx.turns.err = errors.New("backend down")
	conversation := fx.store.addConversation(1, "m1")

	resp, err := fx.service.ProcessVoiceUpload(context.Background(), 1, conversation.ID, []byte("webm"), "english", "")
	require.NoError(t, err)

	// The transcript survived; only the AI turn failed.
	require.True(t, resp.Success)
	require.Equal(t, "🎤: hello world", resp.Transcription)
	require.Empty(t, resp.AIResponse)
	require.Contains(t, resp.Error, "backend down")
	require.Len(t, fx.store.messagesFor(conversation.ID), 1)
}

func TestProcessVoiceUpload_Unauthorized(t *testing.T) {
	fx := newVoiceFixture(t)
	conversation := fx.store.addConversation(2, "m1")

	_, err := fx.service.ProcessVoiceUpload(context.Background(), 1, conversation.ID, []byte("webm"), "english", "")
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestGetRecording(t *testing.T) {
	fx := newVoiceFixture(t)
	owned := fx.store.addConversation(1, "m1")
	foreign := fx.store.addConversation(2, "m1")

	audio, _ := fx.store.SaveDocument(context.Background(), entities.Document{
		ConversationID: owned.ID, Filename: "voice.wav", MimeType: "audio/wav", Data: []byte("RIFF"),
	})
	text, _ := fx.store.SaveDocument(context.Background(), entities.Document{
		ConversationID: owned.ID, Filename: "notes.txt", MimeType: "text/plain", Data: []byte("x"),
	})
	foreignAudio, _ := fx.store.SaveDocument(context.Background(), entities.Document{
		ConversationID: foreign.ID, Filename: "voice.wav", MimeType: "audio/wav", Data: []byte("RIFF"),
	})

	got, err := fx.service.GetRecording(context.Background(), 1, audio.ID)
	require.NoError(t, err)
	require.Equal(t, audio.ID, got.ID)

	_, err = fx.service.GetRecording(context.Background(), 1, text.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound, "non-audio documents are not recordings")

	_, err = fx.service.GetRecording(context.Background(), 1, foreignAudio.ID)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = fx.service.GetRecording(context.Background(), 1, 9999)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
