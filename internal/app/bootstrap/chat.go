package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/wolfman30/medipulse/internal/chat"
	appconfig "github.com/wolfman30/medipulse/internal/config"
	"github.com/wolfman30/medipulse/pkg/logging"
)

// BuildChatGenerator wires the assistant's language model. A missing key or
// model disables chat (nil generator, the endpoint answers 500) rather than
// failing startup.
func BuildChatGenerator(ctx context.Context, cfg *appconfig.Config, loadAWS AWSLoader, logger *logging.Logger) (chat.Generator, func() error, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	noop := func() error { return nil }

	switch cfg.ChatProvider {
	case chat.ProviderBedrock:
		model := strings.TrimSpace(cfg.BedrockModelID)
		if model == "" || loadAWS == nil {
			logger.Warn("bedrock chat selected but model id empty; chat disabled")
			return nil, noop, nil
		}
		awsCfg, err := loadAWS(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		gen, err := chat.NewBedrockGenerator(bedrockruntime.NewFromConfig(awsCfg), model)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("chat enabled", "provider", chat.ProviderBedrock, "model", model)
		return gen, noop, nil
	case chat.ProviderGemini, "":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			logger.Warn("GEMINI_API_KEY not set; chat disabled")
			return nil, noop, nil
		}
		gen, err := chat.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("chat enabled", "provider", chat.ProviderGemini, "model", cfg.GeminiModel)
		return gen, gen.Close, nil
	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown chat provider %q", cfg.ChatProvider)
	}
}
