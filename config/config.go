package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Generation struct {
	APIKey            string `yaml:"api_key" env:"API_KEY"`
	BaseURL           string `yaml:"base_url" env:"GENERATION_BASE_URL" env-default:"https://generativelanguage.googleapis.com/v1beta/openai/"`
	SpeechModel       string `yaml:"speech_model" env:"SPEECH_MODEL" env-default:"gemini-2.5-flash-preview-tts"`
	SpeechVoice       string `yaml:"speech_voice" env:"SPEECH_VOICE" env-default:"Kore"`
	ContextTokenLimit int    `yaml:"context_token_limit" env:"CONTEXT_TOKEN_LIMIT" env-default:"32000"`
}

type Redis struct {
	Endpoint string `yaml:"endpoint" env:"REDIS_ENDPOINT" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type SQLite struct {
	Path string `yaml:"path" env:"SQLITE_PATH" env-default:"data/legal-ai.db"`
}

type Storage struct {
	Type   string `yaml:"type" env:"STORAGE_TYPE" env-default:"sqlite"`
	Redis  Redis  `yaml:"redis"`
	SQLite SQLite `yaml:"sqlite"`
}

type Speech struct {
	Enabled         bool          `yaml:"enabled" env:"SPEECH_ENABLED" env-default:"true"`
	FallbackCommand string        `yaml:"fallback_command" env:"SPEECH_FALLBACK_COMMAND" env-default:"espeak-ng"`
	CacheTTL        time.Duration `yaml:"cache_ttl" env:"SPEECH_CACHE_TTL" env-default:"30m"`
}

type Connectivity struct {
	ProbeAddress string        `yaml:"probe_address" env:"CONNECTIVITY_PROBE_ADDRESS" env-default:"generativelanguage.googleapis.com:443"`
	Interval     time.Duration `yaml:"interval" env:"CONNECTIVITY_INTERVAL" env-default:"10s"`
	Timeout      time.Duration `yaml:"timeout" env:"CONNECTIVITY_TIMEOUT" env-default:"3s"`
}

type Telegram struct {
	TelegramAPIToken string `yaml:"api_token" env:"TELEGRAM_APITOKEN"`
	OwnerChatID      int64  `yaml:"owner_chat_id" env:"TELEGRAM_OWNER_CHAT_ID"`
}

type LogFile struct {
	Path       string `yaml:"path" env:"LOG_FILE_PATH" env-default:"logs/legal-ai.log"`
	MaxSize    int    `yaml:"max_size" env-default:"10"`
	MaxBackups int    `yaml:"max_backups" env-default:"3"`
	MaxAge     int    `yaml:"max_age" env-default:"28"`
}

type Logging struct {
	Level  string  `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string  `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
	Output string  `yaml:"output" env:"LOG_OUTPUT" env-default:"file"`
	File   LogFile `yaml:"file"`
}

type Config struct {
	Generation   Generation   `yaml:"generation"`
	Storage      Storage      `yaml:"storage"`
	Speech       Speech       `yaml:"speech"`
	Connectivity Connectivity `yaml:"connectivity"`
	Telegram     Telegram     `yaml:"telegram"`
	Logging      Logging      `yaml:"logging"`
}

// LoadConfig reads cfgPath and applies environment overrides. A missing file is not an
// error: the configuration then comes from the environment and defaults alone.
func LoadConfig(cfgPath string) (*Config, error) {
	var cfg Config
	if cfgPath != "" {
		if _, err := os.Stat(cfgPath); err == nil {
			if err = cleanenv.ReadConfig(cfgPath, &cfg); err != nil {
				return nil, err
			}
			return &cfg, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
