package llm

import (
	"fmt"

	"go.uber.org/zap"

	"docextract/internal/config"
	"docextract/internal/port"
)

// ProviderFactory creates a ChatCompleter from the LLM config.
type ProviderFactory func(cfg *config.LLMConfig, logger *zap.Logger) (port.ChatCompleter, error)

// registry of provider factories, populated via RegisterProvider at startup.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewChatCompleter creates a ChatCompleter using the registered factory for cfg.Provider.
func NewChatCompleter(cfg *config.LLMConfig, logger *zap.Logger) (port.ChatCompleter, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
	return factory(cfg, logger)
}
