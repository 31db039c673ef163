package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"star-auth/internal/config"
	"star-auth/internal/db"
	"star-auth/internal/email"
	apihttp "star-auth/internal/http"
	"star-auth/internal/netinfo"
	"star-auth/internal/repository"
	"star-auth/internal/service"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Ping(ctx, pool); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}
	if err := db.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
		logger.Fatal("db migrations", zap.Error(err))
	}

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	var tokenStore service.RefreshTokenStore
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
		}
		cancel()
	}

	extractor, err := netinfo.NewExtractor(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn("geoip dataset open failed", zap.Error(err))
		extractor, _ = netinfo.NewExtractor("")
	}
	defer extractor.Close()

	tokenSvc := service.NewTokenServiceWithStore(
		cfg.JWTAccessSecret,
		cfg.JWTRefreshSecret,
		time.Duration(cfg.AccessTTLMinutes)*time.Minute,
		time.Duration(cfg.RefreshTTLDays)*24*time.Hour,
		tokenStore,
	)

	credRepo := repository.NewPgCredentialRepository()
	sessionRepo := repository.NewPgSessionRepository()
	txRunner := db.NewPoolTxRunner(pool)

	credSvc := service.NewCredentialService(logger, txRunner, credRepo, sessionRepo, tokenSvc, emailSender)

	if cfg.SessionRetentionDays > 0 {
		retention := time.Duration(cfg.SessionRetentionDays) * 24 * time.Hour
		go func() {
			ticker := time.NewTicker(24 * time.Hour)
			defer ticker.Stop()
			for range ticker.C {
				removed, err := credSvc.CleanupSessions(ctx, retention)
				if err != nil {
					logger.Warn("session cleanup failed", zap.Error(err))
					continue
				}
				if removed > 0 {
					logger.Info("session cleanup", zap.Int64("removed", removed))
				}
			}
		}()
	}

	cookieMaxAge := cfg.RefreshCookieDays * 24 * 60 * 60
	credHandler := apihttp.NewCredentialHandler(logger, credSvc, extractor, cfg.IsProduction(), cookieMaxAge)
	router := apihttp.NewRouter(logger, credHandler, tokenSvc)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
