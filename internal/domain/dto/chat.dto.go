package dto

// ChatTurnMessage is one entry of the message history sent to an LLM backend.
type ChatTurnMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamPayload is the JSON body of one SSE frame sent to the client. Text
// is always present, even when empty, so clients can read it unconditionally.
// Error frames carry both the error text and a warning-prefixed display text
// so the client can render the failure inside the transcript.
type StreamPayload struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// StopResponse is returned by the stop endpoint.
type StopResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
