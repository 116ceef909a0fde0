package main

import (
	"context"
	"crypto/rand"
	"flag"
	"log/slog"
	"os"

	"strategist/internal/config"
	"strategist/internal/handler"
	"strategist/internal/logger"
	"strategist/internal/middleware"
	"strategist/internal/service"
	"strategist/internal/store"
)

func main() {
	configFile := flag.String("config", "", "config file path (e.g. etc/config-dev.yaml)")
	flag.Parse()

	cfg := config.Load(*configFile)
	log := logger.Init(cfg.Log)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}

	var provider service.Provider
	if cfg.Gemini.APIKey != "" {
		gp, err := service.NewGeminiProvider(context.Background(), cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.Timeout)
		if err != nil {
			slog.Error("gemini client init failed", "err", err)
			os.Exit(1)
		}
		provider = gp
		slog.Info("gemini provider enabled", "model", cfg.Gemini.Model)
	} else {
		slog.Warn("GEMINI_API_KEY not set, strategy requests will fail with a configuration error")
	}

	secret := []byte(cfg.Auth.TokenSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			slog.Error("token secret generation failed", "err", err)
			os.Exit(1)
		}
		slog.Warn("TOKEN_SECRET not set, session tokens will not survive a restart")
	}

	ledger, err := store.Open(cfg)
	if err != nil {
		slog.Error("ledger open failed", "driver", cfg.Ledger.Driver, "err", err)
		os.Exit(1)
	}
	defer ledger.Close()

	r := handler.NewRouter(handler.Deps{
		Strategist:   service.NewStrategistService(provider, cfg.Gemini.Temperature),
		Auth:         service.NewAuthService(cfg.Auth.Password, cfg.Auth.PasswordHash),
		Tokens:       middleware.NewTokens(secret, cfg.Auth.TokenTTL),
		Ledger:       ledger,
		Log:          log,
		AllowOrigins: cfg.Server.AllowOrigins,
	})

	slog.Info("server starting", "addr", cfg.Addr(), "ledger", cfg.Ledger.Driver)
	if err := r.Run(cfg.Addr()); err != nil {
		slog.Error("server failed", "err", err)
	}
}
