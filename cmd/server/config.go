package main

import "time"

type Config struct {
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=8080"`
	SocketPath           string        `env:"SOCKET_PATH,default=/ws"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	StaticDir            string        `env:"STATIC_DIR"`
	LogLevel             string        `env:"LOG_LEVEL,default=info"`
	HistoryLimit         int           `env:"HISTORY_LIMIT,default=50"`
	MaxContentLength     int           `env:"MAX_CONTENT_LENGTH,default=2000"`
	BufferSize           int           `env:"BUFFER_SIZE,default=64"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=32"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	GCInterval           time.Duration `env:"GC_INTERVAL,default=5m"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s"`
}
