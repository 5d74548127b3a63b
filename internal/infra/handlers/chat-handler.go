package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"chat-connector/internal/domain/apperrors"
	"chat-connector/internal/domain/dto"
	Iservices "chat-connector/internal/domain/interfaces/services"
	"chat-connector/internal/infra/logger"
	"chat-connector/internal/infra/stream"
)

// ChatHandlers serves the streaming chat endpoint and the stop endpoint.
type ChatHandlers struct {
	Logger      *logger.Logger
	TurnService Iservices.ITurnService
}

func NewChatHandlers(log *logger.Logger, turnService Iservices.ITurnService) *ChatHandlers {
	return &ChatHandlers{Logger: log, TurnService: turnService}
}

// CallModel streams the assistant reply as Server-Sent Events. The SSE
// headers are only committed once the first event is ready, so pre-stream
// failures (ownership, bad input) still get proper JSON statuses.
func (ch *ChatHandlers) CallModel(w http.ResponseWriter, r *http.Request) {
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
	prompt := r.FormValue("prompt")
	if prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	serviceType := r.FormValue("service")

	ch.Logger.Info(fmt.Sprintf("Received /call_model request from user %d for conversation %d", userID, conversationID))

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	started := false
	emit := func(event stream.Event) error {
		if !started {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if event.Type == stream.EventEnd {
			return nil
		}
		body, err := json.Marshal(event.Payload())
		if err != nil {
			return fmt.Errorf("marshal stream payload: %w", err)
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", body); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := ch.TurnService.StreamTurn(r.Context(), userID, conversationID, prompt, serviceType, emit); err != nil {
		if started {
			// The stream already carried an error event; nothing sane to add.
			ch.Logger.Error(fmt.Sprintf("Turn failed after streaming started: %v", err))
			return
		}
		writeError(w, statusFor(err), err.Error())
	}
}

// StopResponse flags the caller's active turn for cancellation.
func (ch *ChatHandlers) StopResponse(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	conversationID, err := strconv.ParseInt(r.FormValue("conversation_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "No conversation ID provided")
		return
	}

	ch.Logger.Info(fmt.Sprintf("Request to stop response for conversation %d", conversationID))

	err = ch.TurnService.RequestStop(r.Context(), userID, conversationID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, dto.StopResponse{Success: true, Message: "Response generation stopping"})
	case errors.Is(err, apperrors.ErrNoActiveTurn):
		writeJSON(w, http.StatusNotFound, dto.StopResponse{Success: false, Error: "No active response found"})
	default:
		writeJSON(w, statusFor(err), dto.StopResponse{Success: false, Error: err.Error()})
	}
}
