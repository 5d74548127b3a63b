package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"chat-connector/internal/domain/apperrors"
	"chat-connector/internal/domain/dto"
	Iservices "chat-connector/internal/domain/interfaces/services"
	"chat-connector/internal/infra/logger"

	"github.com/gorilla/mux"
)

const maxVoiceUploadBytes = 32 << 20

// VoiceHandlers serves the voice upload and recording retrieval endpoints.
type VoiceHandlers struct {
	Logger       *logger.Logger
	VoiceService Iservices.IVoiceService
}

func NewVoiceHandlers(log *logger.Logger, voiceService Iservices.IVoiceService) *VoiceHandlers {
	return &VoiceHandlers{Logger: log, VoiceService: voiceService}
}

// UploadVoice accepts an audio blob, transcribes it and runs the AI turn.
func (vh *VoiceHandlers) UploadVoice(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, dto.VoiceUploadResponse{Success: false, Error: err.Error()})
		return
	}

	if err := r.ParseMultipartForm(maxVoiceUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.VoiceUploadResponse{Success: false, Error: "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("voice")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.VoiceUploadResponse{Success: false, Error: "No voice file part"})
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeJSON(w, http.StatusBadRequest, dto.VoiceUploadResponse{Success: false, Error: "No selected voice file"})
		return
	}

	conversationID, err := strconv.ParseInt(r.FormValue("conversation_id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.VoiceUploadResponse{Success: false, Error: "Missing conversation ID"})
		return
	}

	language := r.FormValue("language")
	if language == "" {
		language = "english"
	}

	audio, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.VoiceUploadResponse{Success: false, Error: "failed to read voice file"})
		return
	}

	response, err := vh.VoiceService.ProcessVoiceUpload(r.Context(), userID, conversationID, audio, language, r.FormValue("service"))
	if err != nil {
		vh.Logger.Error(fmt.Sprintf("Error processing voice file: %v", err))
		status := http.StatusInternalServerError
		if errors.Is(err, apperrors.ErrUnauthorized) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, dto.VoiceUploadResponse{
			Success: false,
			Error:   fmt.Sprintf("Error processing voice: %v", err),
		})
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// GetVoiceRecording serves a stored voice recording back to its owner.
func (vh *VoiceHandlers) GetVoiceRecording(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	documentID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recording id")
		return
	}

	document, err := vh.VoiceService.GetRecording(r.Context(), userID, documentID)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", document.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", document.Filename))
	w.Write(document.Data)
}
