package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrMissingSecret is returned when a required credential is not set.
var ErrMissingSecret = errors.New("missing required secret")

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Line       LineConfig       `yaml:"line"`
	Transcribe TranscribeConfig `yaml:"transcribe"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type OpenAIConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	ChatModel string `yaml:"chat_model"`
}

type LineConfig struct {
	AccessToken   string `yaml:"access_token"`
	ChannelSecret string `yaml:"channel_secret"`
	APIEndpoint   string `yaml:"api_endpoint"`
	DataEndpoint  string `yaml:"data_endpoint"`
}

type TranscribeConfig struct {
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
	AudioDir string `yaml:"audio_dir"`
	AudioExt string `yaml:"audio_ext"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads .env (if present), then the optional YAML file at path, then
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "loading .env")
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "reading config file")
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return nil, errors.Wrap(err, "parsing config")
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	str(&c.OpenAI.APIKey, "API_KEY")
	str(&c.OpenAI.BaseURL, "OPENAI_BASE_URL")
	str(&c.OpenAI.ChatModel, "CHAT_MODEL")
	str(&c.Line.AccessToken, "ACCESS_TOKEN")
	str(&c.Line.ChannelSecret, "CHANNEL_SECRET")
	str(&c.Line.APIEndpoint, "LINE_API_ENDPOINT")
	str(&c.Line.DataEndpoint, "LINE_DATA_ENDPOINT")
	str(&c.Transcribe.Model, "TRANSCRIBE_MODEL")
	str(&c.Transcribe.Language, "TRANSCRIBE_LANGUAGE")
	str(&c.Transcribe.AudioDir, "AUDIO_DIR")
	str(&c.Transcribe.AudioExt, "AUDIO_EXT")
	str(&c.Server.Addr, "LISTEN_ADDR")
	str(&c.Log.Level, "LOG_LEVEL")
	str(&c.Log.Format, "LOG_FORMAT")

	if v := strings.TrimSpace(os.Getenv("REQUEST_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "parsing REQUEST_TIMEOUT %q", v)
		}
		c.Server.RequestTimeout = d
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":5000"
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 60 * time.Second
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = "gpt-3.5-turbo"
	}
	if c.Transcribe.Model == "" {
		c.Transcribe.Model = "whisper-1"
	}
	if c.Transcribe.Language == "" {
		c.Transcribe.Language = "ja"
	}
	if c.Transcribe.AudioDir == "" {
		c.Transcribe.AudioDir = os.TempDir()
	}
	if c.Transcribe.AudioExt == "" {
		c.Transcribe.AudioExt = "m4a"
	}
	c.Transcribe.AudioExt = strings.TrimPrefix(c.Transcribe.AudioExt, ".")
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate reports the first required secret that is empty.
func (c *Config) Validate() error {
	required := []struct {
		key, val string
	}{
		{"API_KEY", c.OpenAI.APIKey},
		{"ACCESS_TOKEN", c.Line.AccessToken},
		{"CHANNEL_SECRET", c.Line.ChannelSecret},
	}
	for _, r := range required {
		if r.val == "" {
			return errors.Wrap(ErrMissingSecret, r.key)
		}
	}
	return nil
}
