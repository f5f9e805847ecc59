package main

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BadgerFilepath    string        `envconfig:"BADGER_FILEPATH" required:"true"`
	JWTSecret         string        `envconfig:"JWT_SECRET" required:"true"`
	AuthTokenDuration time.Duration `envconfig:"AUTH_TOKEN_DURATION" default:"24h"`
	// SEED_COLOURS enables colorized output
	Colours bool `envconfig:"SEED_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
