package config

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

const rsaKeyBits = 2048

// loadJWTKeys reads the signing pair from JWT_PRIVATE_KEY and JWT_PUBLIC_KEY (base64 PEM).
// Outside production a missing pair is replaced by an ephemeral one.
func (c *Config) loadJWTKeys() (*rsa.PrivateKey, *rsa.PublicKey, error) {
	privateB64, publicB64 := os.Getenv("JWT_PRIVATE_KEY"), os.Getenv("JWT_PUBLIC_KEY")

	switch {
	case privateB64 != "" && publicB64 != "":
		slog.Info("loading RSA keypair from environment variables")
		return ParseRSAKeyPair(privateB64, publicB64)
	case c.IsProduction():
		return nil, nil, errors.New("JWT_PRIVATE_KEY and JWT_PUBLIC_KEY must be set in production environments")
	}

	slog.Warn("generating ephemeral RSA keypair for JWT; tokens will not survive a restart",
		"environment", c.Server.Environment)
	return GenerateRSAKeyPair()
}

// ParseRSAKeyPair decodes base64 encoded PEM keys and checks that they belong together.
// The private key may be PKCS#1 or PKCS#8, the public key PKIX or PKCS#1.
func ParseRSAKeyPair(privateB64, publicB64 string) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	privateBlock, err := decodePEM("JWT_PRIVATE_KEY", privateB64)
	if err != nil {
		return nil, nil, err
	}
	publicBlock, err := decodePEM("JWT_PUBLIC_KEY", publicB64)
	if err != nil {
		return nil, nil, err
	}

	privateKey, err := parseRSAPrivateKey(privateBlock)
	if err != nil {
		return nil, nil, fmt.Errorf("JWT_PRIVATE_KEY: %w", err)
	}
	publicKey, err := parseRSAPublicKey(publicBlock)
	if err != nil {
		return nil, nil, fmt.Errorf("JWT_PUBLIC_KEY: %w", err)
	}

	if !privateKey.PublicKey.Equal(publicKey) {
		return nil, nil, errors.New("JWT_PUBLIC_KEY does not match JWT_PRIVATE_KEY")
	}
	return privateKey, publicKey, nil
}

func GenerateRSAKeyPair() (*rsa.PrivateKey, *rsa.PublicKey, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate RSA key pair: %w", err)
	}
	return privateKey, &privateKey.PublicKey, nil
}

func decodePEM(name, encoded string) (*pem.Block, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("%s is not valid base64: %w", name, err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("%s does not contain a PEM block", name)
	}
	return block, nil
}

func parseRSAPrivateKey(block *pem.Block) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is %T, not RSA", parsed)
	}
	return key, nil
}

func parseRSAPublicKey(block *pem.Block) (*rsa.PublicKey, error) {
	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, not RSA", parsed)
	}
	return key, nil
}
