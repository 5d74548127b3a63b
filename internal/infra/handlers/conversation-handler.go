package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	Iservices "chat-connector/internal/domain/interfaces/services"
	"chat-connector/internal/infra/logger"

	"github.com/gorilla/mux"
)

const maxDocumentUploadBytes = 16 << 20

// ConversationHandlers serves the conversation CRUD glue around the chat
// pipeline.
type ConversationHandlers struct {
	Logger              *logger.Logger
	ConversationService Iservices.IConversationService
}

func NewConversationHandlers(log *logger.Logger, conversationService Iservices.IConversationService) *ConversationHandlers {
	return &ConversationHandlers{Logger: log, ConversationService: conversationService}
}

// GetChat resolves and returns the conversation for the chat screen.
func (ch *ConversationHandlers) GetChat(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var conversationID int64
	if raw := r.URL.Query().Get("conversation_id"); raw != "" {
		conversationID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid conversation_id")
			return
		}
	}

	view, err := ch.ConversationService.LoadView(r.Context(), userID, conversationID, r.URL.Query().Get("service"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (ch *ConversationHandlers) NewConversation(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	conversation, err := ch.ConversationService.Create(r.Context(), userID, r.FormValue("model"), r.FormValue("service"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, conversation)
}

func (ch *ConversationHandlers) RenameConversation(w http.ResponseWriter, r *http.Request) {
	userID, conversationID, ok := ch.callerAndID(w, r)
	if !ok {
		return
	}

	if err := ch.ConversationService.Rename(r.Context(), userID, conversationID, r.FormValue("title")); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// UpdateTitle is the JSON variant of rename used by the chat screen.
func (ch *ConversationHandlers) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	userID, conversationID, ok := ch.callerAndID(w, r)
	if !ok {
		return
	}

	var body struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Title == "" {
		writeError(w, http.StatusBadRequest, "No title provided")
		return
	}

	if err := ch.ConversationService.Rename(r.Context(), userID, conversationID, body.Title); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "title": body.Title})
}

func (ch *ConversationHandlers) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	userID, conversationID, ok := ch.callerAndID(w, r)
	if !ok {
		return
	}

	if err := ch.ConversationService.Delete(r.Context(), userID, conversationID); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (ch *ConversationHandlers) SwitchModel(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	conversationID, err := strconv.ParseInt(r.FormValue("conversation_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conversation_id")
		return
	}
	model := r.FormValue("model")
	if model == "" {
		writeError(w, http.StatusBadRequest, "model is required")
		return
	}

	if err := ch.ConversationService.SwitchModel(r.Context(), userID, conversationID, model); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (ch *ConversationHandlers) EditMessage(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	messageID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}
	content := r.FormValue("content")
	if content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	if err := ch.ConversationService.EditMessage(r.Context(), userID, messageID, content); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (ch *ConversationHandlers) UploadDocument(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	if err := r.ParseMultipartForm(maxDocumentUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	conversationID, err := strconv.ParseInt(r.FormValue("conversation_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conversation_id")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file part")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read file")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	document, err := ch.ConversationService.UploadDocument(r.Context(), userID, conversationID, header.Filename, mimeType, data)
	if err != nil {
		ch.Logger.Error(fmt.Sprintf("Error uploading document: %v", err))
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "document_id": document.ID})
}

func (ch *ConversationHandlers) ToggleDocumentMode(w http.ResponseWriter, r *http.Request) {
	userID, conversationID, ok := ch.callerAndID(w, r)
	if !ok {
		return
	}

	result, err := ch.ConversationService.ToggleDocumentMode(r.Context(), userID, conversationID)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// callerAndID extracts the caller and the {id} route variable.
func (ch *ConversationHandlers) callerAndID(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return 0, 0, false
	}
	conversationID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conversation id")
		return 0, 0, false
	}
	return userID, conversationID, true
}
