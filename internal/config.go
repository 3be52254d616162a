package internal

import (
	"time"
)

type Config struct {
	Host      string `env:"HOST,default=0.0.0.0"`
	Port      int    `env:"PORT,default=5000"`
	StaticDir string `env:"STATIC_DIR,default=public"`
	LogLevel  string `env:"LOG_LEVEL,default=INFO"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`

	NumberOfWorkers      int           `env:"NUMBER_OF_WORKERS,default=8"`
	BufferSize           int           `env:"BUFFER_SIZE,default=1024"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	HandlerTimeout       time.Duration `env:"HANDLER_TIMEOUT,default=5s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=1s"`
	PingInterval         time.Duration `env:"PING_INTERVAL,default=30s"`

	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	AuthTokenSecret   string        `env:"AUTH_TOKEN_SECRET,required=true"`

	BroadcastDirectory bool `env:"BROADCAST_DIRECTORY,default=true"`
}
