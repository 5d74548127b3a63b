package config

import (
	"fmt"
	"log"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all environment-driven settings for the service.
type Config struct {
	Port     string `env:"PORT" env-default:"8080"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
	LogJSON  bool   `env:"LOG_JSON" env-default:"true"`

	DatabasePath string `env:"DATABASE_PATH" env-default:"chat.db"`

	// LLMService selects the default backend: "ollama" or "openai".
	LLMService   string `env:"LLM_SERVICE" env-default:"ollama"`
	OllamaHost   string `env:"OLLAMA_HOST" env-default:"http://localhost:11434"`
	OpenAIKey    string `env:"OPENAI_API_KEY"`
	OpenAIHost   string `env:"OPENAI_BASE_URL"`
	DefaultModel string `env:"DEFAULT_MODEL" env-default:"llama2"`

	WhisperHost string `env:"WHISPER_HOST" env-default:"http://localhost:8178"`
	FFmpegBin   string `env:"FFMPEG_BIN" env-default:"ffmpeg"`

	// DocContextLimit is the character budget for document grounding text.
	DocContextLimit int `env:"DOC_CONTEXT_LIMIT" env-default:"8000"`
	// HistoryTokenBudget bounds the token count of the outgoing history.
	HistoryTokenBudget int `env:"HISTORY_TOKEN_BUDGET" env-default:"3500"`

	ChatTimeoutSeconds   int `env:"CHAT_TIMEOUT_SECONDS" env-default:"30"`
	StreamTimeoutSeconds int `env:"STREAM_TIMEOUT_SECONDS" env-default:"60"`

	// EmptyTurnPlaceholder persists a placeholder assistant message when a
	// turn is cancelled before any text was produced.
	EmptyTurnPlaceholder bool `env:"TURN_EMPTY_PLACEHOLDER" env-default:"false"`
}

// LoadEnv loads the .env file if present. A missing file is not fatal: in
// production the variables come from the environment directly.
func LoadEnv() error {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println(fmt.Sprintf("No .env file loaded: %v", err))
		return err
	}
	return nil
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config from env: %w", err)
	}
	return &cfg, nil
}
