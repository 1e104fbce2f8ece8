// Ininicializing common application configuration
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ds124wfegd/fractal-bot/internal/entity"
	"github.com/spf13/viper"
)

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"

	StorageFile  = "file"
	StorageS3    = "s3"
	StorageAzure = "azblob"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Bot     BotConfig     `mapstructure:"bot"`
	Storage StorageConfig `mapstructure:"storage"`
	Layout  LayoutConfig  `mapstructure:"layout"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	AppVersion      string `mapstructure:"app_version"`
	Host            string `mapstructure:"host"`
	Port            string `mapstructure:"port"`
	Timeout         time.Duration
	Idle_timeout    time.Duration
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Env             string        `mapstructure:"environment"`
	Mode            string        `mapstructure:"mode"`
}

type BotConfig struct {
	Token           string         `mapstructure:"token"`
	APIURL          string         `mapstructure:"api_url"`
	Mode            string         `mapstructure:"mode"`
	WebhookURL      string         `mapstructure:"webhook_url"`
	WebhookSecret   string         `mapstructure:"webhook_secret"`
	PollTimeout     int            `mapstructure:"poll_timeout"` // в секундах
	DeliveryTimeout time.Duration  `mapstructure:"delivery_timeout"`
	MaxTextLength   int            `mapstructure:"max_text_length"`
	Workers         int            `mapstructure:"workers"`
	Messages        MessagesConfig `mapstructure:"messages"`
}

// MessagesConfig holds every text the bot sends to users.
type MessagesConfig struct {
	Greeting     string `mapstructure:"greeting"`
	TextRequired string `mapstructure:"text_required"`
	TooLong      string `mapstructure:"too_long"`
	Failure      string `mapstructure:"failure"`
	Placeholder  string `mapstructure:"placeholder"`
}

type StorageConfig struct {
	Driver string      `mapstructure:"driver"`
	Path   string      `mapstructure:"path"`
	Prefix string      `mapstructure:"prefix"`
	Ext    string      `mapstructure:"ext"`
	Count  int         `mapstructure:"count"`
	S3     S3Config    `mapstructure:"s3"`
	Azure  AzureConfig `mapstructure:"azure"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

type AzureConfig struct {
	AccountName string `mapstructure:"account_name"`
	AccountKey  string `mapstructure:"account_key"`
	Container   string `mapstructure:"container"`
}

type LayoutConfig struct {
	FontPath      string  `mapstructure:"font_path"`
	FontSize      float64 `mapstructure:"font_size"`
	LineHeight    float64 `mapstructure:"line_height"`
	WidthRatio    float64 `mapstructure:"width_ratio"`
	PaddingX      float64 `mapstructure:"padding_x"`
	PaddingY      float64 `mapstructure:"padding_y"`
	Radius        float64 `mapstructure:"radius"`
	BoxOpacity    float64 `mapstructure:"box_opacity"`
	ShadowOpacity float64 `mapstructure:"shadow_opacity"`
	ShadowBlur    float64 `mapstructure:"shadow_blur"`
	ShadowOffsetX float64 `mapstructure:"shadow_offset_x"`
	ShadowOffsetY float64 `mapstructure:"shadow_offset_y"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.app_version", "1.0.0")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.mode", "release")

	v.SetDefault("bot.token", "")
	v.SetDefault("bot.api_url", "https://api.telegram.org")
	v.SetDefault("bot.mode", ModePolling)
	v.SetDefault("bot.webhook_url", "")
	v.SetDefault("bot.webhook_secret", "")
	v.SetDefault("bot.poll_timeout", 30)
	v.SetDefault("bot.delivery_timeout", 30*time.Second)
	v.SetDefault("bot.max_text_length", 70)
	v.SetDefault("bot.workers", 4)
	v.SetDefault("bot.messages.greeting", "Привет! Я генерирую картинки 256x256.\n\n"+
		"Отправь любой текст до 70 символов, я в ответ пришлю тебе картинку с этим текстом")
	v.SetDefault("bot.messages.text_required", "Пожалуйста, отправьте текст для картинки.")
	v.SetDefault("bot.messages.too_long", "Текст слишком длинный, максимум 70 символов.")
	v.SetDefault("bot.messages.failure", "Не удалось создать картинку, попробуйте ещё раз.")
	v.SetDefault("bot.messages.placeholder", "Здесь мог быть ваш текст")

	v.SetDefault("storage.driver", StorageFile)
	v.SetDefault("storage.path", ".")
	v.SetDefault("storage.prefix", "png")
	v.SetDefault("storage.ext", ".png")
	v.SetDefault("storage.count", 40)
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "auto")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")
	v.SetDefault("storage.azure.account_name", "")
	v.SetDefault("storage.azure.account_key", "")
	v.SetDefault("storage.azure.container", "")

	v.SetDefault("layout.font_path", "")
	v.SetDefault("layout.font_size", 24)
	v.SetDefault("layout.line_height", 1.4)
	v.SetDefault("layout.width_ratio", 0.8)
	v.SetDefault("layout.padding_x", 20)
	v.SetDefault("layout.padding_y", 12)
	v.SetDefault("layout.radius", 8)
	v.SetDefault("layout.box_opacity", 0.3)
	v.SetDefault("layout.shadow_opacity", 0.8)
	v.SetDefault("layout.shadow_blur", 3)
	v.SetDefault("layout.shadow_offset_x", 1)
	v.SetDefault("layout.shadow_offset_y", 1)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9094"})
	v.SetDefault("kafka.topic", "render-events")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// LoadConfig reads config.yaml from dir. A missing file is not an error,
// defaults and environment variables still apply.
func LoadConfig(dir string) (*viper.Viper, error) {

	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	viperInstance := viper.New()
	setDefaults(viperInstance)

	viperInstance.AddConfigPath(dir)
	viperInstance.SetConfigName("config")
	viperInstance.SetConfigType("yaml")

	viperInstance.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperInstance.AutomaticEnv()
	// TOKEN is the variable name the bot was always deployed with
	if err := viperInstance.BindEnv("bot.token", "BOT_TOKEN", "TOKEN"); err != nil {
		return nil, err
	}

	err := viperInstance.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}
	return viperInstance, nil
}

// LoadDotEnv exports KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	dotenv := viper.New()
	dotenv.SetConfigFile(path)
	dotenv.SetConfigType("env")
	if err := dotenv.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	for _, key := range dotenv.AllKeys() {
		name := strings.ToUpper(key)
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		if err := os.Setenv(name, dotenv.GetString(key)); err != nil {
			return err
		}
	}
	return nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {

	var c Config

	err := v.Unmarshal(&c)
	if err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	return &c, nil
}

// Validate reports the first setting that prevents the bot from starting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Bot.Token) == "" {
		return entity.NewConfigurationError("TOKEN is required", entity.ErrMissingToken)
	}
	switch c.Bot.Mode {
	case ModePolling:
	case ModeWebhook:
		if c.Bot.WebhookURL == "" {
			return entity.NewConfigurationError("bot.webhook_url is required in webhook mode", nil)
		}
	default:
		return entity.NewConfigurationError(fmt.Sprintf("unknown bot.mode %q", c.Bot.Mode), nil)
	}
	if c.Bot.MaxTextLength <= 0 {
		return entity.NewConfigurationError("bot.max_text_length must be > 0", nil)
	}
	if c.Bot.DeliveryTimeout <= 0 {
		return entity.NewConfigurationError("bot.delivery_timeout must be > 0", nil)
	}
	if c.Storage.Count < 1 || c.Storage.Count > 99 {
		return entity.NewConfigurationError(fmt.Sprintf("storage.count must be in [1,99], got %d", c.Storage.Count), nil)
	}
	switch c.Storage.Driver {
	case StorageFile:
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			return entity.NewConfigurationError("storage.s3.bucket is required", nil)
		}
	case StorageAzure:
		if c.Storage.Azure.AccountName == "" || c.Storage.Azure.Container == "" {
			return entity.NewConfigurationError("storage.azure.account_name and container are required", nil)
		}
	default:
		return entity.NewConfigurationError(fmt.Sprintf("unknown storage.driver %q", c.Storage.Driver), nil)
	}
	if c.Layout.FontSize <= 0 || c.Layout.LineHeight <= 0 {
		return entity.NewConfigurationError("layout.font_size and layout.line_height must be > 0", nil)
	}
	if c.Layout.WidthRatio <= 0 || c.Layout.WidthRatio > 1 {
		return entity.NewConfigurationError("layout.width_ratio must be in (0,1]", nil)
	}
	return nil
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
