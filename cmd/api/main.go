package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"nexusmc-api/internal/config"
	"nexusmc-api/internal/database"
	"nexusmc-api/internal/server"
	"nexusmc-api/internal/services"

	"github.com/joho/godotenv"
)

func main() {
	envFile := flag.String("env-file", ".env", "path to an optional dotenv file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		slog.Warn("dotenv file not loaded, using process environment", "path", *envFile, "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Server)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Initialize(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close database", "error", err)
		}
	}()

	cipher, err := newTokenCipher(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize token cipher", "error", err)
		os.Exit(1)
	}

	srv, err := server.New(cfg, db, cipher, logger)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

func newLogger(cfg config.ServerConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// newTokenCipher builds the cipher for stored Plaid access tokens. Outside production a missing
// ENCRYPTION_KEY is replaced by a random one, so linked banks do not survive a restart.
func newTokenCipher(cfg *config.Config, logger *slog.Logger) (services.TokenCipherInterface, error) {
	key := cfg.Encryption.Key
	if key == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		key = base64.StdEncoding.EncodeToString(buf)
		logger.Warn("ENCRYPTION_KEY not set, using an ephemeral key; stored bank links will not decrypt after a restart",
			"environment", cfg.Server.Environment)
	}

	return services.NewAESCipher(key)
}
