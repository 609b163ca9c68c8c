package config

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePEM(blockType string, der []byte) string {
	return base64.StdEncoding.EncodeToString(pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der}))
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "testing")
	t.Setenv("HF_MAX_CONCURRENCY", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsTesting())
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Address())
	assert.Equal(t, 60*time.Second, cfg.Dashboard.Timeout)
	assert.Equal(t, 1, cfg.HuggingFace.MaxConcurrency, "concurrency is clamped to at least one")
	assert.Equal(t, []string{"transactions"}, cfg.Plaid.Products)
	assert.Equal(t, defaultCORSOrigins, cfg.Server.CORSAllowOrigins)
	assert.False(t, cfg.Plaid.Enabled())
	assert.False(t, cfg.Database.AutoMigrate)
	assert.Equal(t, "db/migrations", cfg.Database.MigrationsPath)
	assert.Equal(t, 90*24*time.Hour, cfg.Security.AuditRetention)
	assert.NotNil(t, cfg.JWT.PrivateKey, "ephemeral keys outside production")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "testing")
	t.Setenv("CORS_ALLOW_ORIGINS", " https://app.nexusmc.ai , ,https://admin.nexusmc.ai")
	t.Setenv("PLAID_CLIENT_ID", "client")
	t.Setenv("PLAID_SECRET", "secret")
	t.Setenv("PLAID_ENV", PlaidEnvDevelopment)
	t.Setenv("AUTO_MIGRATE", "true")
	t.Setenv("DASHBOARD_TIMEOUT", "5s")
	t.Setenv("RATE_LIMIT_BURST", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://app.nexusmc.ai", "https://admin.nexusmc.ai"}, cfg.Server.CORSAllowOrigins)
	assert.True(t, cfg.Plaid.Enabled())
	assert.Equal(t, "https://development.plaid.com", cfg.Plaid.BaseURL())
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, 5*time.Second, cfg.Dashboard.Timeout)
	assert.Equal(t, 20, cfg.Security.RateLimitBurst, "unparsable values fall back to the default")
}

func TestLoad_RejectsUnknownPlaidEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "testing")
	t.Setenv("PLAID_ENV", "staging")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PLAID_ENV")
}

func TestLoad_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ENCRYPTION_KEY")

	t.Setenv("ENCRYPTION_KEY", "prod-secret")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_PRIVATE_KEY")
}

func TestParseRSAKeyPair(t *testing.T) {
	privateKey, publicKey, err := GenerateRSAKeyPair()
	require.NoError(t, err)

	pkixPublic, err := x509.MarshalPKIXPublicKey(publicKey)
	require.NoError(t, err)
	pkcs8Private, err := x509.MarshalPKCS8PrivateKey(privateKey)
	require.NoError(t, err)

	tests := []struct {
		name    string
		private string
		public  string
	}{
		{"pkcs1 private with pkix public", encodePEM("RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(privateKey)), encodePEM("PUBLIC KEY", pkixPublic)},
		{"pkcs8 private with pkcs1 public", encodePEM("PRIVATE KEY", pkcs8Private), encodePEM("RSA PUBLIC KEY", x509.MarshalPKCS1PublicKey(publicKey))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotPrivate, gotPublic, err := ParseRSAKeyPair(tt.private, tt.public)
			require.NoError(t, err)
			assert.True(t, privateKey.Equal(gotPrivate))
			assert.True(t, publicKey.Equal(gotPublic))
		})
	}
}

func TestParseRSAKeyPair_Errors(t *testing.T) {
	privateKey, _, err := GenerateRSAKeyPair()
	require.NoError(t, err)
	_, otherPublic, err := GenerateRSAKeyPair()
	require.NoError(t, err)

	private := encodePEM("RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(privateKey))
	mismatched := encodePEM("RSA PUBLIC KEY", x509.MarshalPKCS1PublicKey(otherPublic))

	tests := []struct {
		name    string
		private string
		public  string
		want    string
	}{
		{"not base64", "%%%", mismatched, "not valid base64"},
		{"no pem block", private, base64.StdEncoding.EncodeToString([]byte("plain text")), "does not contain a PEM block"},
		{"garbage der", encodePEM("RSA PRIVATE KEY", []byte("nope")), mismatched, "failed to parse private key"},
		{"mismatched pair", private, mismatched, "does not match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseRSAKeyPair(tt.private, tt.public)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for level, want := range cases {
		assert.Equal(t, want, (&ServerConfig{LogLevel: level}).SlogLevel(), level)
	}
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "nexusmc", SSLMode: "require"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=nexusmc sslmode=require", db.DSN())
}
