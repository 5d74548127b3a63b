package dto

import "chat-connector/internal/domain/entities"

// ConversationView is returned by the chat load endpoint.
type ConversationView struct {
	Conversation entities.Conversation  `json:"conversation"`
	Messages     []entities.ChatMessage `json:"messages"`
	Models       []string               `json:"models"`
}

// ToggleDocumentModeResponse is returned after flipping document mode.
type ToggleDocumentModeResponse struct {
	Success      bool   `json:"success"`
	DocumentMode bool   `json:"document_mode"`
	Message      string `json:"message,omitempty"`
	Error        string `json:"error,omitempty"`
}
