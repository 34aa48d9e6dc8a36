package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI = "openai"
	ProviderArk    = "ark"
	ProviderGemini = "gemini"

	AudioStoreLocal = "local"
	AudioStoreS3    = "s3"
)

// Config 服务配置
type Config struct {
	ServerAddr string
	LogLevel   string
	LogFile    string

	StaticDir      string
	AudioDir       string
	AudioURLPrefix string

	OpenAIAPIKey  string
	OpenAIBaseURL string

	TextProvider     string
	StoryModel       string
	VisionModel      string
	StoryTemperature float32
	StoryMaxTokens   int
	VisionMaxTokens  int

	ArkAPIKey     string
	ArkBaseURL    string
	ArkChatModel  string
	ArkImageModel string
	ArkMock       bool

	ImageProvider    string
	ImageModel       string
	ImageSize        string
	ImageQuality     string
	GeminiAPIKey     string
	GeminiImageModel string
	GenerateImages   bool

	TTSModel string
	TTSVoice string

	AudioStore      string
	S3Bucket        string
	S3Region        string
	S3Prefix        string
	S3PublicBaseURL string

	TextTimeout   time.Duration
	VisionTimeout time.Duration
	ImageTimeout  time.Duration
	TTSTimeout    time.Duration

	NarrationWorkers int
}

// Load 加载.env和环境变量
func Load() (*Config, error) {
	// .env不存在时直接使用环境变量
	_ = godotenv.Load()

	cfg := &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8000"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFile:    getEnv("LOG_FILE", ""),

		StaticDir:      getEnv("STATIC_DIR", "static"),
		AudioDir:       getEnv("AUDIO_DIR", "static/audio"),
		AudioURLPrefix: strings.TrimRight(getEnv("AUDIO_URL_PREFIX", "/static/audio"), "/"),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: strings.TrimRight(getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"), "/"),

		TextProvider: strings.ToLower(getEnv("TEXT_PROVIDER", ProviderOpenAI)),
		StoryModel:   getEnv("STORY_MODEL", "gpt-4o"),
		VisionModel:  getEnv("VISION_MODEL", "gpt-4o"),

		ArkAPIKey:     getEnv("ARK_API_KEY", ""),
		ArkBaseURL:    strings.TrimRight(getEnv("ARK_BASE_URL", "https://ark.cn-beijing.volces.com"), "/"),
		ArkChatModel:  getEnv("ARK_CHAT_MODEL", ""),
		ArkImageModel: getEnv("ARK_IMAGE_MODEL", "doubao-seedream-3-0-t2i-250415"),
		ArkMock:       getEnvBool("ARK_MOCK", false),

		ImageProvider:    strings.ToLower(getEnv("IMAGE_PROVIDER", ProviderOpenAI)),
		ImageModel:       getEnv("IMAGE_MODEL", "dall-e-3"),
		ImageSize:        getEnv("IMAGE_SIZE", "1024x1024"),
		ImageQuality:     getEnv("IMAGE_QUALITY", "standard"),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiImageModel: getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		GenerateImages:   getEnvBool("GENERATE_IMAGES", false),

		TTSModel: getEnv("TTS_MODEL", "tts-1"),
		TTSVoice: getEnv("TTS_VOICE", "alloy"),

		AudioStore:      strings.ToLower(getEnv("AUDIO_STORE", AudioStoreLocal)),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Region:        getEnv("S3_REGION", ""),
		S3Prefix:        strings.Trim(getEnv("S3_PREFIX", "audio"), "/"),
		S3PublicBaseURL: strings.TrimRight(getEnv("S3_PUBLIC_BASE_URL", ""), "/"),
	}

	var err error
	if cfg.StoryTemperature, err = getEnvFloat32("STORY_TEMPERATURE", 0.8); err != nil {
		return nil, err
	}
	if cfg.StoryMaxTokens, err = getEnvInt("STORY_MAX_TOKENS", 2000); err != nil {
		return nil, err
	}
	if cfg.VisionMaxTokens, err = getEnvInt("VISION_MAX_TOKENS", 500); err != nil {
		return nil, err
	}
	if cfg.NarrationWorkers, err = getEnvInt("NARRATION_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.TextTimeout, err = getEnvDuration("TEXT_TIMEOUT", 90*time.Second); err != nil {
		return nil, err
	}
	if cfg.VisionTimeout, err = getEnvDuration("VISION_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ImageTimeout, err = getEnvDuration("IMAGE_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.TTSTimeout, err = getEnvDuration("TTS_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// TextCredentialSet 当前文本生成后端的密钥是否已配置
func (c *Config) TextCredentialSet() bool {
	if c.TextProvider == ProviderArk {
		return c.ArkAPIKey != ""
	}
	return c.OpenAIAPIKey != ""
}

// ChatModels 返回故事和图片分析使用的模型名
func (c *Config) ChatModels() (story, vision string) {
	if c.TextProvider == ProviderArk {
		return c.ArkChatModel, c.ArkChatModel
	}
	return c.StoryModel, c.VisionModel
}

// SpeechCredentialSet 语音合成始终走OpenAI
func (c *Config) SpeechCredentialSet() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) validate() error {
	switch c.TextProvider {
	case ProviderOpenAI:
	case ProviderArk:
		if c.ArkChatModel == "" {
			return fmt.Errorf("ARK_CHAT_MODEL is required when TEXT_PROVIDER=ark")
		}
	default:
		return fmt.Errorf("unsupported TEXT_PROVIDER %q", c.TextProvider)
	}

	switch c.ImageProvider {
	case ProviderOpenAI, ProviderArk, ProviderGemini:
	default:
		return fmt.Errorf("unsupported IMAGE_PROVIDER %q", c.ImageProvider)
	}

	switch c.AudioStore {
	case AudioStoreLocal:
	case AudioStoreS3:
		if c.S3Bucket == "" || c.S3Region == "" {
			return fmt.Errorf("S3_BUCKET and S3_REGION are required when AUDIO_STORE=s3")
		}
	default:
		return fmt.Errorf("unsupported AUDIO_STORE %q", c.AudioStore)
	}

	if c.StoryTemperature < 0 || c.StoryTemperature > 2 {
		return fmt.Errorf("STORY_TEMPERATURE must be within [0, 2], got %v", c.StoryTemperature)
	}
	if c.StoryMaxTokens <= 0 || c.VisionMaxTokens <= 0 {
		return fmt.Errorf("STORY_MAX_TOKENS and VISION_MAX_TOKENS must be positive")
	}
	if c.NarrationWorkers <= 0 {
		return fmt.Errorf("NARRATION_WORKERS must be positive, got %d", c.NarrationWorkers)
	}
	for name, d := range map[string]time.Duration{
		"TEXT_TIMEOUT":   c.TextTimeout,
		"VISION_TIMEOUT": c.VisionTimeout,
		"IMAGE_TIMEOUT":  c.ImageTimeout,
		"TTS_TIMEOUT":    c.TTSTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(getEnv(key, "")) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, raw, err)
	}
	return v, nil
}

func getEnvFloat32(key string, defaultValue float32) (float32, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q: %w", key, raw, err)
	}
	return float32(v), nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	}
	return v, nil
}
