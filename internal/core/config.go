package core

import (
	"time"
)

type Config struct {
	Server ServerConfig
	Enrich EnrichConfig
	Store  StoreConfig
	Flood  FloodConfig
	Log    LogConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type EnrichConfig struct {
	OEmbedURL string
	Timeout   time.Duration
	CacheSize int
}

type StoreConfig struct {
	Path                    string
	FilterCapacity          int
	FilterFalsePositiveRate float64
	ReadCacheSize           int
}

type FloodConfig struct {
	RequestsPerMinute int
}

type LogConfig struct {
	Level  string
	Format string
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Enrich: EnrichConfig{
			OEmbedURL: "https://www.tiktok.com/oembed",
			Timeout:   10 * time.Second,
			CacheSize: 256,
		},
		Store: StoreConfig{
			Path:                    "./mediaref.db",
			FilterCapacity:          100000,
			FilterFalsePositiveRate: 0.001,
			ReadCacheSize:           1024,
		},
		Flood: FloodConfig{
			RequestsPerMinute: 240,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
