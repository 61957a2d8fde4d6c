package chatbot

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig is the chat service's configuration, read from the
// environment since the service runs standalone.
type EnvConfig struct {
	Port         int    `envconfig:"CHATBOT_PORT" default:"8081"`
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY" required:"true"`
	Model        string `envconfig:"CHATBOT_MODEL" default:"gpt-3.5-turbo"`
	LogLevel     string `envconfig:"CHATBOT_LOG_LEVEL" default:"info"`
}

func LoadEnvConfig() (*EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load chatbot config: %w", err)
	}
	return &cfg, nil
}
