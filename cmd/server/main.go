package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"healthhub/internal/app"
	"healthhub/internal/config"
	"healthhub/internal/drugapi"
	"healthhub/internal/ratelimit"
	"healthhub/internal/server"
	"healthhub/internal/session"
	"healthhub/internal/store"
	"healthhub/internal/util"
	"healthhub/internal/wechat"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}
	tokenTTL, err := config.ParseTokenTTL(cfg.TokenTTL)
	if err != nil {
		log.Fatalf("failed to parse token TTL: %v", err)
	}
	drugAPITimeout, err := config.ParseDrugAPITimeout(cfg.DrugAPITimeout)
	if err != nil {
		log.Fatalf("failed to parse drug API timeout: %v", err)
	}
	wechatTimeout, err := config.ParseWechatTimeout(cfg.WechatTimeout)
	if err != nil {
		log.Fatalf("failed to parse wechat timeout: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	st, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}

	tokens, err := session.NewTokenManager(cfg.JWTSecret, tokenTTL)
	if err != nil {
		log.Fatalf("failed to init token manager: %v", err)
	}

	var sessions app.SessionSaver
	if cfg.RedisAddr != "" {
		redisStore, err := session.NewStore(cfg.RedisAddr, cfg.RedisPassword, sessionTTL)
		if err != nil {
			log.Fatalf("failed to init session store: %v", err)
		}
		sessions = redisStore
	} else {
		logger.Warn("redis not configured, session keys will not be retained")
	}

	var directory app.DrugDirectory
	if cfg.DrugAPIHost != "" {
		directory = drugapi.NewClient(drugapi.Config{
			Host:        cfg.DrugAPIHost,
			AppCode:     cfg.DrugAPIAppCode,
			BarcodePath: cfg.DrugAPIBarcodePath,
			SearchPath:  cfg.DrugAPISearchPath,
			DetailPath:  cfg.DrugAPIDetailPath,
			Timeout:     drugAPITimeout,
		}, logger)
	} else {
		logger.Warn("drug API not configured, lookups are local-only")
	}

	var loginLimiter server.Limiter
	if cfg.LoginRateLimitPerMinute > 0 {
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "healthhub:ratelimit:login",
			cfg.LoginRateLimitPerMinute, time.Minute)
		if err != nil {
			log.Fatalf("failed to init login rate limiter: %v", err)
		}
		loginLimiter = limiter
	}

	wechatClient := wechat.NewClient(wechat.Config{
		AppID:    cfg.WechatAppID,
		Secret:   cfg.WechatSecret,
		LoginURL: cfg.WechatLoginURL,
		Timeout:  wechatTimeout,
	})

	drugs := app.NewDrugService(st, directory, logger)
	users := app.NewUserService(st, wechatClient, sessions, tokens, logger)

	httpServer := server.New(server.Config{
		Drugs:        drugs,
		Users:        users,
		Tokens:       tokens,
		LoginLimiter: loginLimiter,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
