package services

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"

	"github.com/damacus/iron-transfer/pkg/logger"
)

// SessionKeySize is the AES-256 key length expected for SESSION_KEY
const SessionKeySize = 32

// CookieSealer encrypts session ids before they are handed to the browser,
// so a client cannot pick another session's id.
type CookieSealer struct {
	encryptionKey []byte
}

// NewCookieSealer uses key when it is 32 bytes long, otherwise a random key
// is generated and sessions do not survive a restart.
func NewCookieSealer(key string) *CookieSealer {
	if len(key) != SessionKeySize {
		if key != "" {
			logger.Log.Warn().Int("length", len(key)).Msg("SESSION_KEY must be 32 bytes, using an ephemeral key")
		}
		newKey := make([]byte, SessionKeySize)
		if _, err := io.ReadFull(rand.Reader, newKey); err != nil {
			panic("failed to generate random key")
		}
		return &CookieSealer{encryptionKey: newKey}
	}
	return &CookieSealer{encryptionKey: []byte(key)}
}

// Seal encrypts a session id into a cookie-safe string
func (s *CookieSealer) Seal(sessionID string) (string, error) {
	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(sessionID), nil)
	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

// Open decodes a cookie value back into the session id
func (s *CookieSealer) Open(sealed string) (string, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(sealed)
	if err != nil {
		return "", err
	}

	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return "", errors.New("malformed ciphertext")
	}

	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func (s *CookieSealer) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
