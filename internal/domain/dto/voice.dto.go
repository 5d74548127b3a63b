package dto

// Transcription is the result returned by the speech backend.
type Transcription struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// VoiceUploadResponse is returned by the voice upload endpoint. Success refers
// to the transcription step: a failed AI turn after a good transcription still
// reports success=true with Error filled in.
type VoiceUploadResponse struct {
	Success          bool   `json:"success"`
	Transcription    string `json:"transcription,omitempty"`
	MessageID        int64  `json:"message_id,omitempty"`
	AIResponse       string `json:"ai_response,omitempty"`
	Error            string `json:"error,omitempty"`
	DetectedLanguage string `json:"detected_language,omitempty"`
}
