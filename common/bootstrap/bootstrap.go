// Package bootstrap builds the collaborators every entrypoint needs from
// one Config, so the local server and each lambda main wire them the same way.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/glitzfusion/fusionx/common/config"
	"github.com/glitzfusion/fusionx/common/content"
	"github.com/glitzfusion/fusionx/common/db"
	"github.com/glitzfusion/fusionx/common/email"
	"github.com/glitzfusion/fusionx/common/jwt"
	"github.com/glitzfusion/fusionx/common/logger"
	"github.com/glitzfusion/fusionx/common/media"
	"github.com/glitzfusion/fusionx/common/razorpay"
)

// jobTimeout bounds a single background email job.
const jobTimeout = 45 * time.Second

// App holds the shared dependencies of the services.
type App struct {
	Config  *config.Config
	Log     *logger.Logger
	DB      *sql.DB
	JWT     *jwt.Manager
	Gateway *razorpay.Client
	Mailer  *email.SMTPSender
	Jobs    *email.Dispatcher
	Media   media.Store
	Content content.Store

	redis *redis.Client
}

// New loads configuration and opens every backing store. Optional
// collaborators fall back to a disabled or in-memory implementation when
// they are not configured.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return FromConfig(ctx, cfg)
}

func FromConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.Default()
	app := &App{Config: cfg, Log: log}

	sqlDB, err := db.Open(ctx, db.Config{
		Driver:          cfg.DB.Driver,
		DSN:             cfg.DB.DSN,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	app.DB = sqlDB

	app.JWT = jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)
	app.Gateway = razorpay.NewClient(razorpay.Config{
		KeyID:     cfg.Razorpay.KeyID,
		KeySecret: cfg.Razorpay.KeySecret,
		BaseURL:   cfg.Razorpay.BaseURL,
		Timeout:   cfg.Razorpay.Timeout,
	})

	app.Mailer, err = email.NewSMTPSender(email.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
	}, log)
	if err != nil {
		app.Close()
		return nil, err
	}
	if app.Mailer.DevMode() {
		log.Warn("[BOOT] SMTP credentials missing, emails are logged only")
	}
	app.Jobs = email.NewDispatcher(jobTimeout, log)

	app.Media = media.Disabled{}
	if cfg.Cloudinary.Enabled() {
		store, err := media.NewCloudinaryStore(media.Config{
			CloudName: cfg.Cloudinary.CloudName,
			APIKey:    cfg.Cloudinary.APIKey,
			APISecret: cfg.Cloudinary.APISecret,
			Folder:    cfg.Cloudinary.Folder,
		})
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Media = store
	} else {
		log.Warn("[BOOT] Cloudinary not configured, media uploads disabled")
	}

	if cfg.Redis.Addr != "" {
		client, err := content.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.redis = client
		app.Content = content.NewRedisStore(client, cfg.Redis.Prefix)
	} else {
		log.Warn("[BOOT] REDIS_ADDR empty, content is kept in memory")
		app.Content = content.NewMemoryStore()
	}
	return app, nil
}

// Close waits for queued emails and releases connections.
func (a *App) Close() {
	if a.Jobs != nil {
		a.Jobs.Wait()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Log.WithError(err).Warn("[BOOT] redis close failed")
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Log.WithError(err).Warn("[BOOT] database close failed")
		}
	}
}
