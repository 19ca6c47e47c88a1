package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	commoncfg "github.com/rivoaiteam/rivo-partners/internal/common/config"
)

// Config rivo-partners runtime settings, read from the environment
type Config struct {
	HTTP      HTTPConfig
	DBEnabled bool
	Database  commoncfg.DatabaseConfig
	Redis     commoncfg.RedisConfig
	Log       struct {
		Level  string
		Format string
	}
	Facts    FactsConfig
	MQTT     MQTTConfig
	YCloud   YCloudConfig
	Telegram TelegramConfig
	CRM      CRMConfig
	// ConfigCacheTTL how long GET /config answers may be served from Redis
	ConfigCacheTTL time.Duration
}

// HTTPConfig API listener and server limits
type HTTPConfig struct {
	Addr              string
	AllowedOrigins    []string
	AdminToken        string
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	// ShutdownTimeout how long in-flight requests may drain on SIGTERM
	ShutdownTimeout time.Duration
}

// FactsConfig Redis stream sink for bonus / milestone facts
type FactsConfig struct {
	Enabled bool
	Stream  string
	MaxLen  int64
}

// MQTTConfig optional broker sink for facts
type MQTTConfig struct {
	Enabled bool
	commoncfg.MQTTConfig
	TopicPrefix string
}

// YCloudConfig WhatsApp Business API access
type YCloudConfig struct {
	BaseURL        string
	APIKey         string
	WhatsAppNumber string
	AppURL         string
}

// TelegramConfig operations chat for bonus alerts; disabled when Token is empty
type TelegramConfig struct {
	Token  string
	ChatID int64
}

// CRMConfig Rivo CRM used by the status sync command
type CRMConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.HTTP.AllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "*"))
	cfg.HTTP.AdminToken = getEnv("ADMIN_TOKEN", "")
	cfg.HTTP.ReadHeaderTimeout = seconds("HTTP_READ_HEADER_TIMEOUT_SECONDS", 5)
	cfg.HTTP.ReadTimeout = seconds("HTTP_READ_TIMEOUT_SECONDS", 15)
	// the xlsx export is the slowest response
	cfg.HTTP.WriteTimeout = seconds("HTTP_WRITE_TIMEOUT_SECONDS", 60)
	cfg.HTTP.IdleTimeout = seconds("HTTP_IDLE_TIMEOUT_SECONDS", 120)
	cfg.HTTP.ShutdownTimeout = seconds("HTTP_SHUTDOWN_TIMEOUT_SECONDS", 10)

	// Without a database the service runs on in-memory repositories (local dev only).
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "rivo_partner")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "20"), 20)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)
	cfg.Redis.PoolSize = parseInt(getEnv("REDIS_POOL_SIZE", "10"), 10)
	cfg.Redis.DialTimeout = seconds("REDIS_DIAL_TIMEOUT_SECONDS", 2)
	cfg.Redis.ReadTimeout = seconds("REDIS_READ_TIMEOUT_SECONDS", 1)
	cfg.Redis.KeyPrefix = getEnv("REDIS_KEY_PREFIX", "rivo:")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Facts.Enabled = getEnv("FACTS_STREAM_ENABLED", "true") == "true"
	cfg.Facts.Stream = getEnv("FACTS_STREAM", "rivo:facts")
	cfg.Facts.MaxLen = int64(parseInt(getEnv("FACTS_STREAM_MAXLEN", "10000"), 10000))

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "rivo-partners")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(parseInt(getEnv("MQTT_QOS", "1"), 1))
	cfg.MQTT.TopicPrefix = getEnv("MQTT_TOPIC_PREFIX", "rivo")

	cfg.YCloud.BaseURL = getEnv("YCLOUD_BASE_URL", "https://api.ycloud.com")
	cfg.YCloud.APIKey = getEnv("YCLOUD_API_KEY", "")
	cfg.YCloud.WhatsAppNumber = getEnv("YCLOUD_WHATSAPP_NUMBER", "")
	cfg.YCloud.AppURL = getEnv("APP_URL", "https://partner.rivo.ae")

	cfg.Telegram.Token = getEnv("TELEGRAM_BOT_TOKEN", "")
	cfg.Telegram.ChatID = int64(parseInt(getEnv("TELEGRAM_CHAT_ID", "0"), 0))

	cfg.CRM.BaseURL = getEnv("RIVO_CRM_BASE_URL", "")
	cfg.CRM.APIKey = getEnv("RIVO_CRM_API_KEY", "")
	cfg.CRM.Timeout = seconds("RIVO_CRM_TIMEOUT_SECONDS", 15)

	cfg.ConfigCacheTTL = seconds("CONFIG_CACHE_TTL_SECONDS", 3600)

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func seconds(key string, def int) time.Duration {
	return time.Duration(parseInt(getEnv(key, strconv.Itoa(def)), def)) * time.Second
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
