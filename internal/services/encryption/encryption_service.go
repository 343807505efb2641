package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
)

// Service implements the EncryptionService interface with AES-256-GCM.
// Multiple keys support rotation: the first key encrypts, every key is
// tried on decrypt so old ciphertexts remain readable.
type Service struct {
	keys   [][]byte
	logger arbor.ILogger
}

// NewService creates an encryption service from a comma-separated key string.
// Keys of any length are accepted; each is stretched to 32 bytes via SHA-256.
func NewService(keyString string, logger arbor.ILogger) (interfaces.EncryptionService, error) {
	if strings.TrimSpace(keyString) == "" {
		return nil, fmt.Errorf("encryption key is required")
	}

	var keys [][]byte
	for _, part := range strings.Split(keyString, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sum := sha256.Sum256([]byte(part))
		keys = append(keys, sum[:])
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("encryption key is required")
	}

	logger.Debug().Int("key_count", len(keys)).Msg("Encryption service initialized")

	return &Service{keys: keys, logger: logger}, nil
}

// Encrypt returns a base64 ciphertext produced with the current (first) key
func (s *Service) Encrypt(plaintext string) (string, error) {
	gcm, err := newGCM(s.keys[0])
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt tries each configured key in order until one authenticates
func (s *Service) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("invalid ciphertext encoding: %w", err)
	}

	for _, key := range s.keys {
		gcm, err := newGCM(key)
		if err != nil {
			return "", err
		}
		if len(raw) < gcm.NonceSize() {
			return "", fmt.Errorf("ciphertext too short")
		}
		nonce, sealed := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
		plaintext, err := gcm.Open(nil, nonce, sealed, nil)
		if err == nil {
			return string(plaintext), nil
		}
	}

	return "", fmt.Errorf("decryption failed with all configured keys")
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
