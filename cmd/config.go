package main

import "time"

type Config struct {
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=8080"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	AuthTimeout          time.Duration `env:"AUTH_TIMEOUT,default=5s"`
	JWTSecret            string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration    time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	DeliveryTimeout      time.Duration `env:"DELIVERY_TIMEOUT,default=100ms"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	PongTimeout          time.Duration `env:"PONG_TIMEOUT,default=60s"`
	PingInterval         time.Duration `env:"PING_INTERVAL,default=30s"`
	MaxMessageSize       int64         `env:"MAX_MESSAGE_SIZE,default=65536"`
	MaxContentLength     int           `env:"MAX_CONTENT_LENGTH,default=4096"`
	CensoredWordsPath    string        `env:"CENSORED_WORDS_PATH"`
	CharacterReplacement string        `env:"CHARACTER_REPLACEMENT,default=*"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=10s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=1s"`
}
