package services

import (
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	AI        AIConfig
	JWT       JWTConfig
	Storage   StorageConfig
	WebSocket WebSocketConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	URL          string
	Seed         bool
	LogLevel     string
	MaxIdleConns int
	MaxOpenConns int
}

type AIConfig struct {
	GeminiAPIKey      string
	ElevenLabsKey     string
	GenerateTimeout   time.Duration // question generation, evaluation, aggregate feedback
	TranscribeTimeout time.Duration
	SpeechTimeout     time.Duration
}

type JWTConfig struct {
	Secret string
}

type StorageConfig struct {
	UploadDir     string
	AudioCacheDir string
	MaxUploadMB   int64
}

type WebSocketConfig struct {
	AllowedOrigins string
}

// LoadConfig loads configuration from environment variables and config files
func LoadConfig() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("websocket.allowed_origins", "")
	viper.SetDefault("gemini.api_key", "")
	viper.SetDefault("elevenlabs.api_key", "")
	viper.SetDefault("jwt.secret", "")
	viper.SetDefault("database.url", "")
	viper.SetDefault("database.seed", "true")
	viper.SetDefault("database.log_level", "silent")
	viper.SetDefault("database.max_idle_conns", "10")
	viper.SetDefault("database.max_open_conns", "100")
	viper.SetDefault("storage.upload_dir", "uploads")
	viper.SetDefault("storage.audio_cache_dir", "audio_cache")
	viper.SetDefault("storage.max_upload_mb", "10")
	viper.SetDefault("ai.generate_timeout_seconds", "30")
	viper.SetDefault("ai.transcribe_timeout_seconds", "15")
	viper.SetDefault("ai.speech_timeout_seconds", "60")

	// Map environment variables to config keys
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("websocket.allowed_origins", "WEBSOCKET_ALLOWED_ORIGINS")
	viper.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	viper.BindEnv("elevenlabs.api_key", "ELEVENLABS_API_KEY")
	viper.BindEnv("jwt.secret", "JWT_SECRET")
	viper.BindEnv("database.url", "DATABASE_URL")
	viper.BindEnv("database.seed", "DATABASE_SEED")
	viper.BindEnv("database.log_level", "DATABASE_LOG_LEVEL")
	viper.BindEnv("database.max_idle_conns", "DATABASE_MAX_IDLE_CONNS")
	viper.BindEnv("database.max_open_conns", "DATABASE_MAX_OPEN_CONNS")
	viper.BindEnv("storage.upload_dir", "STORAGE_UPLOAD_DIR")
	viper.BindEnv("storage.audio_cache_dir", "STORAGE_AUDIO_CACHE_DIR")
	viper.BindEnv("storage.max_upload_mb", "STORAGE_MAX_UPLOAD_MB")
	viper.BindEnv("ai.generate_timeout_seconds", "AI_GENERATE_TIMEOUT_SECONDS")
	viper.BindEnv("ai.transcribe_timeout_seconds", "AI_TRANSCRIBE_TIMEOUT_SECONDS")
	viper.BindEnv("ai.speech_timeout_seconds", "AI_SPEECH_TIMEOUT_SECONDS")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Warn("Config file not found, using defaults and environment variables")
		} else {
			slog.Error("Error reading config file", "error", err)
		}
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
		},
		Database: DatabaseConfig{
			URL:          viper.GetString("database.url"),
			Seed:         viper.GetBool("database.seed"),
			LogLevel:     viper.GetString("database.log_level"),
			MaxIdleConns: viper.GetInt("database.max_idle_conns"),
			MaxOpenConns: viper.GetInt("database.max_open_conns"),
		},
		AI: AIConfig{
			GeminiAPIKey:      viper.GetString("gemini.api_key"),
			ElevenLabsKey:     viper.GetString("elevenlabs.api_key"),
			GenerateTimeout:   time.Duration(viper.GetInt("ai.generate_timeout_seconds")) * time.Second,
			TranscribeTimeout: time.Duration(viper.GetInt("ai.transcribe_timeout_seconds")) * time.Second,
			SpeechTimeout:     time.Duration(viper.GetInt("ai.speech_timeout_seconds")) * time.Second,
		},
		JWT: JWTConfig{
			Secret: viper.GetString("jwt.secret"),
		},
		Storage: StorageConfig{
			UploadDir:     viper.GetString("storage.upload_dir"),
			AudioCacheDir: viper.GetString("storage.audio_cache_dir"),
			MaxUploadMB:   viper.GetInt64("storage.max_upload_mb"),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins: viper.GetString("websocket.allowed_origins"),
		},
	}
}
