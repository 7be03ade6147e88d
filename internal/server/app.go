// Package server initializes and runs the farmgate server: database and
// migrations, the auth services, the HTTP and gRPC transports and the
// background cleanup of expired codes and sessions.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/farmgate/internal/logging"
	"github.com/dmitrijs2005/farmgate/internal/server/config"
	"github.com/dmitrijs2005/farmgate/internal/server/gate"
	"github.com/dmitrijs2005/farmgate/internal/server/httpapi"
	"github.com/dmitrijs2005/farmgate/internal/server/mail"
	"github.com/dmitrijs2005/farmgate/internal/server/media"
	"github.com/dmitrijs2005/farmgate/internal/server/ratelimit"
	"github.com/dmitrijs2005/farmgate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/farmgate/internal/server/services"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/farmgate/internal/server/grpc"
)

// openDB is a seam for tests.
var openDB = func(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

type purger interface {
	PurgeExpired(ctx context.Context) (otps, sessions int64, err error)
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	auth    *services.AuthService
	purger  purger
	limiter ratelimit.Limiter
	closers []func() error
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSON(!c.IsProduction())

	sender, err := mail.New(mail.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		User:     c.SMTPUser,
		Password: c.SMTPPassword,
		From:     c.SMTPFrom,
		Strict:   c.IsProduction(),
		Required: c.IsProduction(),
	}, logger.With("module", "mail"))
	if err != nil {
		return nil, fmt.Errorf("mail init error: %w", err)
	}

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	app := &App{config: c, logger: logger, closers: []func() error{db.Close}}

	limiter, closeLimiter := newLimiter(c)
	if closeLimiter != nil {
		app.closers = append(app.closers, closeLimiter)
	}
	app.limiter = limiter

	mailer := mail.NewOTPMailer(sender, c.SiteName)

	otps := services.NewOTPService(db, rm, mailer, limiter, c, logger)
	sessions := services.NewSessionService(db, rm, c, logger)
	app.auth = services.NewAuthService(otps, sessions, newSigner(c), logger)
	app.purger = app.auth

	return app, nil
}

// newLimiter returns a Redis limiter when Redis is configured and an
// in-process one otherwise. The second result closes the Redis client.
func newLimiter(c *config.Config) (ratelimit.Limiter, func() error) {
	if c.RedisAddr == "" {
		return ratelimit.NewMemory(c.OTPAttemptLimit, c.OTPAttemptWindow), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	})
	return ratelimit.NewRedis(client, c.OTPAttemptLimit, c.OTPAttemptWindow), client.Close
}

func newSigner(c *config.Config) services.URLSigner {
	mc := media.Config{
		RootUser:     c.S3RootUser,
		RootPassword: c.S3RootPassword,
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
	}
	if !mc.Enabled() {
		return nil
	}
	return media.NewPresigner(mc)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// cleanup runs one housekeeping pass.
func (app *App) cleanup(ctx context.Context) {
	otps, sessions, err := app.purger.PurgeExpired(ctx)
	if err != nil {
		app.logger.Error(ctx, "purge expired rows failed", "error", err)
	} else if otps > 0 || sessions > 0 {
		app.logger.Info(ctx, "purged expired rows", "otps", otps, "sessions", sessions)
	}

	if m, ok := app.limiter.(*ratelimit.Memory); ok {
		if n := m.Sweep(); n > 0 {
			app.logger.Debug(ctx, "swept idle rate limit buckets", "count", n)
		}
	}
}

func (app *App) runCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.cleanup(ctx)
		}
	}
}

func (app *App) close(ctx context.Context) {
	app.auth.Wait()
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Warn(ctx, "close failed", "error", err)
		}
	}
}

// cookiePolicy ties the cookie lifetime to the session timeout.
func (app *App) cookiePolicy() gate.CookiePolicy {
	return gate.CookiePolicy{
		Secure: app.config.IsProduction(),
		MaxAge: app.config.SessionInactiveTimeout,
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "environment", app.config.Environment)

	app.initSignalHandler(cancelFunc)

	cookies := app.cookiePolicy()
	httpSrv := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.auth, cookies)
	grpcSrv := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.auth, cookies)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		if err := httpSrv.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()
	go func() {
		defer wg.Done()
		if err := grpcSrv.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()
	go func() {
		defer wg.Done()
		app.runCleanup(ctx, app.config.CleanupInterval)
	}()

	wg.Wait()

	app.close(context.WithoutCancel(ctx))
	app.logger.Info(ctx, "App stopped")
}
