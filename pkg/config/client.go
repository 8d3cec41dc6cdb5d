package config

import "time"

// ClientConfig holds settings for processes that record through the log service.
type ClientConfig struct {
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int
	DialTimeout   time.Duration
	Author        string
	Echo          bool
	FallbackDir   string
	LogLevel      string
	ServerURL     string
	StreamToken   string
}

// LoadClientConfig constructs a ClientConfig from environment variables.
func LoadClientConfig() ClientConfig {
	return ClientConfig{
		RedisHost:     GetString("LOG_REDIS_HOST", "127.0.0.1"),
		RedisPort:     GetInt("LOG_REDIS_PORT", 6379),
		RedisPassword: GetString("LOG_REDIS_PASSWORD", ""),
		RedisDB:       GetInt("LOG_REDIS_DB", 0),
		DialTimeout:   GetMillis("LOG_REDIS_DIAL_TIMEOUT_MS", 2*time.Second),
		Author:        GetString("LOG_AUTHOR", "Anonymous"),
		Echo:          GetBool("LOG_ECHO", false),
		FallbackDir:   GetString("LOG_FALLBACK_DIR", "./"),
		LogLevel:      GetString("LOG_LEVEL", "info"),
		ServerURL:     GetString("LOG_SERVER_URL", "http://localhost:8080"),
		StreamToken:   GetString("LOG_STREAM_TOKEN", ""),
	}
}
