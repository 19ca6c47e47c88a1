// Package app wires configuration, storage and services for the binaries.
package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/appconfig"
	"github.com/rivoaiteam/rivo-partners/internal/common/database"
	commonmqtt "github.com/rivoaiteam/rivo-partners/internal/common/mqtt"
	commonredis "github.com/rivoaiteam/rivo-partners/internal/common/redis"
	"github.com/rivoaiteam/rivo-partners/internal/config"
	"github.com/rivoaiteam/rivo-partners/internal/crm"
	httpapi "github.com/rivoaiteam/rivo-partners/internal/http"
	"github.com/rivoaiteam/rivo-partners/internal/notify"
	"github.com/rivoaiteam/rivo-partners/internal/repository"
	"github.com/rivoaiteam/rivo-partners/internal/service"
	"github.com/rivoaiteam/rivo-partners/internal/store"
)

// ConfigSource runtime config as both the services and the HTTP layer see it
type ConfigSource interface {
	appconfig.Source
	httpapi.ConfigStore
}

// App every long-lived dependency of one process
type App struct {
	Cfg    *config.Config
	Logger *zap.Logger

	DB    *sql.DB
	Redis *redis.Client
	MQTT  *commonmqtt.Client

	Store       repository.Store
	ConfigStore *appconfig.Store
	Config      ConfigSource
	Dispatcher  notify.Multi
	Sender      notify.TextSender

	Pipeline     *service.StatusPipeline
	Agents       *service.AgentService
	Verification *service.VerificationService
	Clients      *service.ClientService
	Webhooks     *service.WebhookService
	Nudger       *service.Nudger
}

// ErrDatabaseRequired returned by RequireDB when DB_ENABLED=false
var ErrDatabaseRequired = errors.New("database is required (DB_ENABLED=false)")

// New builds the App. With DB_ENABLED=false the in-memory store is used.
// An unreachable Redis only disables the config cache and the fact stream.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Cfg: cfg, Logger: logger}

	if cfg.DBEnabled {
		db, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			return nil, err
		}
		a.DB = db
		a.Store = repository.NewPostgresStore(db, logger)
		logger.Info("DB enabled for rivo-partners", zap.String("database", cfg.Database.Database))
	} else {
		a.Store = repository.NewMemoryStore()
		logger.Warn("DB disabled, using in-memory repositories")
	}

	a.ConfigStore = appconfig.NewStore(a.Store.Config(), logger)
	a.Config = a.ConfigStore

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if rc, err := commonredis.Connect(pingCtx, &cfg.Redis); err != nil {
		logger.Warn("Redis unavailable, config cache and fact stream disabled", zap.Error(err))
	} else {
		a.Redis = rc
		a.Config = appconfig.NewCachedSource(a.ConfigStore, store.NewRedisKV(rc, cfg.Redis.KeyPrefix), cfg.ConfigCacheTTL, logger)
	}

	if cfg.YCloud.APIKey != "" {
		a.Sender = notify.NewYCloudClient(cfg.YCloud.BaseURL, cfg.YCloud.APIKey, cfg.YCloud.WhatsAppNumber, logger)
	} else {
		logger.Warn("YCLOUD_API_KEY not set, WhatsApp messages are only logged")
		a.Sender = notify.NewLogSender(logger)
	}

	a.Dispatcher = a.dispatchers()

	// bonus schedules are read from app_config on every allocation, never from the cache
	a.Pipeline = service.NewStatusPipeline(a.Store,
		service.NewStatusTracker(a.ConfigStore, logger),
		service.NewBonusEngine(a.ConfigStore, logger),
		a.Dispatcher, logger)
	a.Agents = service.NewAgentService(a.Store, a.Config, a.Dispatcher, logger)
	a.Verification = service.NewVerificationService(a.Store, a.Agents, a.Config, a.Sender, cfg.YCloud.AppURL, logger)
	a.Clients = service.NewClientService(a.Store, a.Config, a.Dispatcher, logger)
	a.Webhooks = service.NewWebhookService(a.Store, a.Pipeline, a.Verification, logger)
	a.Nudger = service.NewNudger(a.Store, a.Config, a.Sender, cfg.YCloud.AppURL, logger)

	return a, nil
}

func (a *App) dispatchers() notify.Multi {
	m := notify.Multi{
		notify.NewLog(a.Logger),
		notify.NewWhatsAppNotifier(a.Sender, a.Store.Agents(), a.Config, a.Logger),
	}

	if a.Redis != nil && a.Cfg.Facts.Enabled {
		m = append(m, notify.NewStreamPublisher(a.Redis, a.Cfg.Facts.Stream, a.Cfg.Facts.MaxLen))
	}

	if a.Cfg.MQTT.Enabled {
		client, err := commonmqtt.NewClient(&a.Cfg.MQTT.MQTTConfig)
		if err != nil {
			a.Logger.Warn("MQTT unavailable, facts not published to broker", zap.String("broker", a.Cfg.MQTT.Broker), zap.Error(err))
		} else {
			a.MQTT = client
			m = append(m, notify.NewMQTTPublisher(client, a.Cfg.MQTT.TopicPrefix, client.QoS()))
		}
	}

	if a.Cfg.Telegram.Token != "" && a.Cfg.Telegram.ChatID != 0 {
		bot, err := tgbotapi.NewBotAPI(a.Cfg.Telegram.Token)
		if err != nil {
			a.Logger.Warn("Telegram bot unavailable", zap.Error(err))
		} else {
			m = append(m, notify.NewTelegramNotifier(bot, a.Cfg.Telegram.ChatID))
		}
	}
	return m
}

// CRMSync nil when RIVO_CRM_BASE_URL is not set.
func (a *App) CRMSync() *service.CRMSync {
	if a.Cfg.CRM.BaseURL == "" {
		return nil
	}
	fetcher := crm.NewClient(a.Cfg.CRM.BaseURL, a.Cfg.CRM.APIKey, a.Cfg.CRM.Timeout, a.Logger)
	return service.NewCRMSync(a.Store, a.Pipeline, fetcher, a.Logger)
}

// Router the HTTP API
func (a *App) Router() http.Handler {
	return httpapi.NewRouter(httpapi.Handlers{
		Auth:     a.Agents,
		Webhooks: httpapi.NewWebhookHandler(a.Webhooks, a.Logger),
		Login:    httpapi.NewAuthHandler(a.Verification, a.Agents, a.Logger),
		Agents:   httpapi.NewAgentHandler(a.Agents, a.Logger),
		Clients:  httpapi.NewClientHandler(a.Clients, a.Logger),
		Config:   httpapi.NewConfigHandler(a.Config, a.Logger),
		Admin:    httpapi.NewAdminHandler(a.Store, a.Pipeline, a.Webhooks, a.Logger),
	}, httpapi.RouterOptions{
		AllowedOrigins: a.Cfg.HTTP.AllowedOrigins,
		AdminToken:     a.Cfg.HTTP.AdminToken,
	}, a.Logger)
}

// RequireDB for commands that only make sense against Postgres.
func (a *App) RequireDB() error {
	if a.DB == nil {
		return ErrDatabaseRequired
	}
	return nil
}

func (a *App) Close() {
	if a.MQTT != nil {
		a.MQTT.Disconnect()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = database.Close(a.DB)
	}
}
