package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/satriahrh/cocoa-fruit/voicechat/domain"
)

const (
	BackendVertex = "vertex"
	BackendGemini = "gemini"
	BackendOpenAI = "openai"
)

const (
	DefaultRecorderCommand = "arecord -q -f S16_LE -r 16000 -c 1 -t raw"
	DefaultPlayerCommand   = "mpg123 -q -"
	DefaultMaxTokens       = 100000
	DefaultTopP            = 0.8
	DefaultTopK            = 40
	DefaultCreativity      = 0.7
	DefaultSampleRate      = 16000
)

type Config struct {
	Backend string

	// Vertex endpoint
	ProjectID       string
	EndpointID      string
	Location        string
	APIEndpoint     string
	CredentialsFile string

	GeminiModel   string
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string

	MaxTokens int
	TopP      float64
	TopK      int

	SpeechLanguage  string
	TTSLanguage     string
	TTSVoice        string
	SampleRate      int
	RecorderCommand string
	PlayerCommand   string

	HistoryDir    string
	RedisURL      string
	RedisPassword string

	ServerAddr string
	APIKey     string
	APISecret  string
	JWTSecret  string

	LogFile string

	UI UISettings
}

// UISettings are the interface defaults, optionally read from a TOML file.
type UISettings struct {
	Theme      string  `toml:"theme"`
	Creativity float64 `toml:"creativity"`
}

// Load reads the process environment. Call gotenv.Load first to pick up a .env file.
func Load() (*Config, error) {
	cfg := &Config{
		Backend:         strings.ToLower(GetEnvOrDefault("PREDICTION_BACKEND", BackendVertex)),
		ProjectID:       os.Getenv("PROJECT_ID"),
		EndpointID:      os.Getenv("ENDPOINT_ID"),
		Location:        os.Getenv("LOCATION"),
		APIEndpoint:     os.Getenv("API_ENDPOINT"),
		CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		GeminiModel:     GetEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash-001"),
		OpenAIKey:       os.Getenv("OPENAI_KEY"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:     GetEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		SpeechLanguage:  GetEnvOrDefault("SPEECH_LANGUAGE", "en-US"),
		TTSLanguage:     GetEnvOrDefault("TTS_LANGUAGE", "en-US"),
		TTSVoice:        os.Getenv("TTS_VOICE"),
		RecorderCommand: GetEnvOrDefault("RECORDER_COMMAND", DefaultRecorderCommand),
		PlayerCommand:   GetEnvOrDefault("PLAYER_COMMAND", DefaultPlayerCommand),
		HistoryDir:      GetEnvOrDefault("HISTORY_DIR", "."),
		RedisURL:        os.Getenv("REDIS_URL"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		ServerAddr:      GetEnvOrDefault("SERVER_ADDR", ":8080"),
		APIKey:          os.Getenv("API_KEY"),
		APISecret:       os.Getenv("API_SECRET"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		LogFile:         GetEnvOrDefault("LOG_FILE", "voicechat.log"),
		UI:              UISettings{Theme: "light", Creativity: DefaultCreativity},
	}

	var errs []error
	var err error
	if cfg.MaxTokens, err = intEnv("MAX_TOKENS", DefaultMaxTokens); err != nil {
		errs = append(errs, err)
	}
	if cfg.TopK, err = intEnv("TOP_K", DefaultTopK); err != nil {
		errs = append(errs, err)
	}
	if cfg.SampleRate, err = intEnv("SAMPLE_RATE", DefaultSampleRate); err != nil {
		errs = append(errs, err)
	}
	if cfg.TopP, err = floatEnv("TOP_P", DefaultTopP); err != nil {
		errs = append(errs, err)
	}
	if path := os.Getenv("SETTINGS_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, &cfg.UI); err != nil {
			errs = append(errs, fmt.Errorf("decoding settings file %s: %w", path, err))
		}
	}
	if len(errs) > 0 {
		return nil, &domain.ConfigurationError{Err: errors.Join(errs...)}
	}

	return cfg, nil
}

// Validate checks that the selected prediction backend has everything it needs.
// It runs before any client is created so that a missing value fails fast.
func (c *Config) Validate() error {
	var missing []string
	require := func(key, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}

	switch c.Backend {
	case BackendVertex:
		require("PROJECT_ID", c.ProjectID)
		require("ENDPOINT_ID", c.EndpointID)
		require("LOCATION", c.Location)
		require("API_ENDPOINT", c.APIEndpoint)
		require("GOOGLE_APPLICATION_CREDENTIALS", c.CredentialsFile)
	case BackendGemini:
		require("PROJECT_ID", c.ProjectID)
		require("LOCATION", c.Location)
		require("GOOGLE_APPLICATION_CREDENTIALS", c.CredentialsFile)
	case BackendOpenAI:
		require("OPENAI_KEY", c.OpenAIKey)
	default:
		return &domain.ConfigurationError{Err: fmt.Errorf("unknown PREDICTION_BACKEND %q", c.Backend)}
	}

	if len(missing) > 0 {
		return &domain.ConfigurationError{Missing: missing}
	}
	if c.CredentialsFile != "" {
		if _, err := os.Stat(c.CredentialsFile); err != nil {
			return &domain.ConfigurationError{Err: fmt.Errorf("credentials file: %w", err)}
		}
	}
	if c.MaxTokens <= 0 {
		return &domain.ConfigurationError{Err: fmt.Errorf("MAX_TOKENS must be positive, got %d", c.MaxTokens)}
	}
	return nil
}

// ValidateServer checks the settings only the remote surface needs.
func (c *Config) ValidateServer() error {
	var missing []string
	for key, value := range map[string]string{"API_KEY": c.APIKey, "API_SECRET": c.APISecret, "JWT_SECRET": c.JWTSecret} {
		if value == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &domain.ConfigurationError{Missing: missing}
	}
	return nil
}

// EndpointPath is the fully qualified Vertex endpoint resource name.
func (c *Config) EndpointPath() string {
	return fmt.Sprintf("projects/%s/locations/%s/endpoints/%s", c.ProjectID, c.Location, c.EndpointID)
}
