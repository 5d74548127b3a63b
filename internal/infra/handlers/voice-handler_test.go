package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"chat-connector/internal/domain/apperrors"
	"chat-connector/internal/domain/dto"
	"chat-connector/internal/domain/entities"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

func voiceRouter(vh *VoiceHandlers) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/upload_voice", vh.UploadVoice).Methods(http.MethodPost)
	router.HandleFunc("/voice_recording/{id:[0-9]+}", vh.GetVoiceRecording).Methods(http.MethodGet)
	return router
}

func voiceUploadRequest(t *testing.T, fields map[string]string, filename string, audio []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("voice", filename)
		require.NoError(t, err)
		part.Write(audio)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload_voice", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadVoice(t *testing.T) {
	svc := &stubVoiceService{response: dto.VoiceUploadResponse{
		Success:          true,
		Transcription:    "🎤: hello",
		MessageID:        12,
		AIResponse:       "hi back",
		DetectedLanguage: "en",
	}}
	router := voiceRouter(NewVoiceHandlers(newTestLogger(), svc))

	req := voiceUploadRequest(t, map[string]string{"conversation_id": "5"}, "blob.webm", []byte("webm-bytes"))
	req.Header.Set(userIDHeader, "1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"transcription":"🎤: hello"`)
	require.Contains(t, rec.Body.String(), `"ai_response":"hi back"`)

	require.Equal(t, []byte("webm-bytes"), svc.gotAudio)
	require.Equal(t, "english", svc.gotLanguage, "language defaults when not sent")
}

func TestUploadVoice_ExplicitLanguage(t *testing.T) {
	svc := &stubVoiceService{response: dto.VoiceUploadResponse{Success: true}}
	router := voiceRouter(NewVoiceHandlers(newTestLogger(), svc))

	req := voiceUploadRequest(t, map[string]string{
		"conversation_id": "5",
		"language":        "persian",
	}, "blob.webm", []byte("x"))
	req.Header.Set(userIDHeader, "1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "persian", svc.gotLanguage)
}

func TestUploadVoice_MissingFilePart(t *testing.T) {
	router := voiceRouter(NewVoiceHandlers(newTestLogger(), &stubVoiceService{}))

	req := voiceUploadRequest(t, map[string]string{"conversation_id": "5"}, "", nil)
	req.Header.Set(userIDHeader, "1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "No voice file part")
}

func TestUploadVoice_UnauthorizedMapsToNotFound(t *testing.T) {
	svc := &stubVoiceService{err: apperrors.ErrUnauthorized}
	router := voiceRouter(NewVoiceHandlers(newTestLogger(), svc))

	req := voiceUploadRequest(t, map[string]string{"conversation_id": "5"}, "blob.webm", []byte("x"))
	req.Header.Set(userIDHeader, "1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), `"success":false`)
}

func TestUploadVoice_EmptyTranscription(t *testing.T) {
	svc := &stubVoiceService{err: apperrors.ErrEmptyTranscription}
	router := voiceRouter(NewVoiceHandlers(newTestLogger(), svc))

	req := voiceUploadRequest(t, map[string]string{"conversation_id": "5"}, "blob.webm", []byte("x"))
	req.Header.Set(userIDHeader, "1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "transcription resulted in empty text")
}

func TestGetVoiceRecording(t *testing.T) {
	svc := &stubVoiceService{recording: entities.Document{
		ID:       4,
		Filename: "voice-abc.wav",
		MimeType: "audio/wav",
		Data:     []byte("RIFFwav"),
	}}
	router := voiceRouter(NewVoiceHandlers(newTestLogger(), svc))

	req := httptest.NewRequest(http.MethodGet, "/voice_recording/4", nil)
	req.Header.Set(userIDHeader, "1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "voice-abc.wav")
	require.Equal(t, []byte("RIFFwav"), rec.Body.Bytes())
}

func TestGetVoiceRecording_NotFound(t *testing.T) {
	svc := &stubVoiceService{err: apperrors.ErrNotFound}
	router := voiceRouter(NewVoiceHandlers(newTestLogger(), svc))

	req := httptest.NewRequest(http.MethodGet, "/voice_recording/4", nil)
	req.Header.Set(userIDHeader, "1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
