package encryption

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestService_EncryptDecrypt(t *testing.T) {
	svc, err := NewService("primary-key", arbor.NewLogger())
	require.NoError(t, err)

	ciphertext, err := svc.Encrypt("hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, ciphertext)
	assert.NotEqual(t, "hunter2", ciphertext)

	plaintext, err := svc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plaintext)
}

func TestService_CiphertextsAreUnique(t *testing.T) {
	svc, err := NewService("primary-key", arbor.NewLogger())
	require.NoError(t, err)

	first, err := svc.Encrypt("same input")
	require.NoError(t, err)
	second, err := svc.Encrypt("same input")
	require.NoError(t, err)

	// Random nonces keep identical plaintexts from producing identical output
	assert.NotEqual(t, first, second)
}

func TestService_WrongKeyFails(t *testing.T) {
	logger := arbor.NewLogger()

	encryptor, err := NewService("key-one", logger)
	require.NoError(t, err)
	other, err := NewService("key-two", logger)
	require.NoError(t, err)

	ciphertext, err := encryptor.Encrypt("secret")
	require.NoError(t, err)

	_, err = other.Decrypt(ciphertext)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all configured keys")
}

func TestService_KeyRotation(t *testing.T) {
	logger := arbor.NewLogger()

	oldSvc, err := NewService("old-key", logger)
	require.NoError(t, err)
	ciphertext, err := oldSvc.Encrypt("legacy secret")
	require.NoError(t, err)

	// New key first, old key retained decrypt-only
	rotated, err := NewService("new-key, old-key", logger)
	require.NoError(t, err)

	plaintext, err := rotated.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "legacy secret", plaintext)

	// Fresh ciphertext uses the new key and is unreadable with only the old one
	fresh, err := rotated.Encrypt("current secret")
	require.NoError(t, err)
	_, err = oldSvc.Decrypt(fresh)
	assert.Error(t, err)
}

func TestService_InvalidInput(t *testing.T) {
	t.Run("empty key string", func(t *testing.T) {
		_, err := NewService("  ", arbor.NewLogger())
		require.Error(t, err)
	})

	t.Run("garbage ciphertext", func(t *testing.T) {
		svc, err := NewService("key", arbor.NewLogger())
		require.NoError(t, err)

		_, err = svc.Decrypt("not base64!!!")
		assert.Error(t, err)

		_, err = svc.Decrypt("c2hvcnQ=")
		assert.Error(t, err)
	})
}
