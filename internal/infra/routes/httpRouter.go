package routes

import (
	"encoding/json"
	"net/http"

	"chat-connector/internal/infra/handlers"

	"github.com/gorilla/mux"
)

type Routes struct {
	Mux                  *mux.Router
	ChatHandlers         *handlers.ChatHandlers
	ConversationHandlers *handlers.ConversationHandlers
	VoiceHandlers        *handlers.VoiceHandlers
}

func NewRoutes(mux *mux.Router, chatHandlers *handlers.ChatHandlers, conversationHandlers *handlers.ConversationHandlers, voiceHandlers *handlers.VoiceHandlers) *Routes {
	return &Routes{mux, chatHandlers, conversationHandlers, voiceHandlers}
}

func (r *Routes) Init() {
	r.Mux.HandleFunc("/call_model", r.ChatHandlers.CallModel).Methods(http.MethodPost)
	r.Mux.HandleFunc("/stop_response", r.ChatHandlers.StopResponse).Methods(http.MethodPost)

	r.Mux.HandleFunc("/chat", r.ConversationHandlers.GetChat).Methods(http.MethodGet)
	r.Mux.HandleFunc("/conversation/new", r.ConversationHandlers.NewConversation).Methods(http.MethodPost)
	r.Mux.HandleFunc("/conversation/{id:[0-9]+}/rename", r.ConversationHandlers.RenameConversation).Methods(http.MethodPost)
	r.Mux.HandleFunc("/conversation/{id:[0-9]+}/update_title", r.ConversationHandlers.UpdateTitle).Methods(http.MethodPost)
	r.Mux.HandleFunc("/conversation/{id:[0-9]+}/delete", r.ConversationHandlers.DeleteConversation).Methods(http.MethodPost)
	r.Mux.HandleFunc("/switch_model", r.ConversationHandlers.SwitchModel).Methods(http.MethodPost)
	r.Mux.HandleFunc("/edit_message/{id:[0-9]+}", r.ConversationHandlers.EditMessage).Methods(http.MethodPost)
	r.Mux.HandleFunc("/upload_document", r.ConversationHandlers.UploadDocument).Methods(http.MethodPost)
	r.Mux.HandleFunc("/toggle_document_mode/{id:[0-9]+}", r.ConversationHandlers.ToggleDocumentMode).Methods(http.MethodPost)

	r.Mux.HandleFunc("/upload_voice", r.VoiceHandlers.UploadVoice).Methods(http.MethodPost)
	r.Mux.HandleFunc("/voice_recording/{id:[0-9]+}", r.VoiceHandlers.GetVoiceRecording).Methods(http.MethodGet)

	r.Mux.HandleFunc("/healthCheck", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		response := map[string]string{"status": "healthy"}
		json.NewEncoder(w).Encode(response)
	}).Methods(http.MethodGet)
}
