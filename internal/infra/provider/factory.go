package provider

import (
	"fmt"
	"net/http"
	"time"

	"chat-connector/internal/config"
	"chat-connector/internal/infra/logger"
)

// Factory resolves a backend handle per request instead of mutating a shared
// service singleton. Providers themselves are stateless and safe to share.
type Factory struct {
	Logger         *logger.Logger
	DefaultService string
	providers      map[string]ILLMProvider
}

func NewFactory(log *logger.Logger, cfg *config.Config, httpClient *http.Client) *Factory {
	chatTimeout := time.Duration(cfg.ChatTimeoutSeconds) * time.Second
	streamTimeout := time.Duration(cfg.StreamTimeoutSeconds) * time.Second

	providers := map[string]ILLMProvider{
		"ollama": NewOllamaProvider(log, httpClient, cfg.OllamaHost, chatTimeout, streamTimeout),
		"openai": NewOpenAIProvider(log, cfg.OpenAIKey, cfg.OpenAIHost, chatTimeout, streamTimeout),
	}

	return &Factory{
		Logger:         log,
		DefaultService: cfg.LLMService,
		providers:      providers,
	}
}

// Register adds or replaces a provider under the given service type.
func (f *Factory) Register(serviceType string, p ILLMProvider) {
	if f.providers == nil {
		f.providers = make(map[string]ILLMProvider)
	}
	f.providers[serviceType] = p
}

// Resolve returns the provider for the requested service type, or the
// configured default when serviceType is empty.
func (f *Factory) Resolve(serviceType string) (ILLMProvider, error) {
	if serviceType == "" {
		serviceType = f.DefaultService
	}
	p, ok := f.providers[serviceType]
	if !ok {
		return nil, fmt.Errorf("unsupported LLM service type: %s", serviceType)
	}
	return p, nil
}
