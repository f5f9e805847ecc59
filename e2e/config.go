package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// CHAT_ADDR is the base ws:// url of a running server, the suite is skipped without it
	ChatAddr string `envconfig:"CHAT_ADDR"`
	// Tokens printed by the seed tool for two users sharing a conversation
	TokenA string `envconfig:"E2E_TOKEN_A"`
	TokenB string `envconfig:"E2E_TOKEN_B"`
	// E2E_DEBUG_JSON allows dumping every frame as JSON
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
