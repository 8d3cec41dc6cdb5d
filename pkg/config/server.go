package config

import "time"

// ServerConfig holds runtime configuration for the log server.
type ServerConfig struct {
	Environment   string
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int
	Directory     string
	HTTPAddr      string
	DatabaseURL   string
	MigrationsDir string
	StreamSecret  string
	StreamBuffer  int
	LogLevel      string
	RestartDelay  time.Duration
}

// LoadServerConfig constructs a ServerConfig from environment variables.
func LoadServerConfig() ServerConfig {
	return ServerConfig{
		Environment:   GetString("APP_ENV", "development"),
		RedisHost:     GetString("LOG_REDIS_HOST", "127.0.0.1"),
		RedisPort:     GetInt("LOG_REDIS_PORT", 6379),
		RedisPassword: GetString("LOG_REDIS_PASSWORD", ""),
		RedisDB:       GetInt("LOG_REDIS_DB", 0),
		Directory:     GetString("LOG_DIRECTORY", "./Logs"),
		HTTPAddr:      GetString("LOG_HTTP_ADDR", ""),
		DatabaseURL:   GetString("DATABASE_URL", ""),
		MigrationsDir: GetString("DB_MIGRATIONS_DIR", "./db/migrations"),
		StreamSecret:  GetString("LOG_STREAM_SECRET", ""),
		StreamBuffer:  GetInt("LOG_STREAM_BUFFER", 256),
		LogLevel:      GetString("LOG_LEVEL", "info"),
		RestartDelay:  GetMillis("LOG_RESTART_DELAY_MS", time.Second),
	}
}
