package services

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/suite"
)

type TokenCipherTestSuite struct {
	suite.Suite
	cipher TokenCipherInterface
}

func TestTokenCipherSuite(t *testing.T) {
	suite.Run(t, new(TokenCipherTestSuite))
}

func (s *TokenCipherTestSuite) SetupTest() {
	var err error
	s.cipher, err = NewAESCipher("local-development-key")
	s.Require().NoError(err)
}

func (s *TokenCipherTestSuite) TestRoundTrip() {
	encrypted, err := s.cipher.Encrypt("access-sandbox-1234")
	s.Require().NoError(err)
	s.NotContains(encrypted, "access-sandbox")

	decrypted, err := s.cipher.Decrypt(encrypted)
	s.Require().NoError(err)
	s.Equal("access-sandbox-1234", decrypted)
}

func (s *TokenCipherTestSuite) TestEncryptUsesFreshNonce() {
	first, err := s.cipher.Encrypt("same")
	s.Require().NoError(err)
	second, err := s.cipher.Encrypt("same")
	s.Require().NoError(err)

	s.NotEqual(first, second)
}

func (s *TokenCipherTestSuite) TestEmptyKeyRejected() {
	c, err := NewAESCipher("")
	s.ErrorIs(err, ErrEmptyEncryptionKey)
	s.Nil(c)
}

func (s *TokenCipherTestSuite) TestEmptyPlaintextRejected() {
	_, err := s.cipher.Encrypt("")
	s.ErrorIs(err, ErrEmptyPlaintext)
}

func (s *TokenCipherTestSuite) TestDecryptWithDifferentKeyFails() {
	encrypted, err := s.cipher.Encrypt("access-sandbox-1234")
	s.Require().NoError(err)

	other, err := NewAESCipher("another-key")
	s.Require().NoError(err)

	_, err = other.Decrypt(encrypted)
	s.Error(err)
}

func (s *TokenCipherTestSuite) TestDecryptMalformedInput() {
	_, err := s.cipher.Decrypt("%%%not-base64")
	s.Error(err)

	_, err = s.cipher.Decrypt(base64.StdEncoding.EncodeToString([]byte("short")))
	s.ErrorIs(err, ErrCiphertextTooShort)
}

func (s *TokenCipherTestSuite) TestDecryptTamperedCiphertext() {
	encrypted, err := s.cipher.Encrypt("access-sandbox-1234")
	s.Require().NoError(err)

	raw, err := base64.StdEncoding.DecodeString(encrypted)
	s.Require().NoError(err)
	raw[len(raw)-1] ^= 0xff

	_, err = s.cipher.Decrypt(base64.StdEncoding.EncodeToString(raw))
	s.Error(err)
}
