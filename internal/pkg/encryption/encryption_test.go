package encryption_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatgate/chat-service/internal/pkg/encryption"
)

// generateTestKey creates a valid 32-byte key for testing.
func generateTestKey(t *testing.T) string {
	t.Helper()
	key, err := encryption.GenerateKey()
	require.NoError(t, err)
	return key
}

func TestNewAESEncryptor_ValidKey(t *testing.T) {
	// Arrange
	key := generateTestKey(t)

	// Act
	encryptor, err := encryption.NewAESEncryptor(key)

	// Assert
	require.NoError(t, err)
	assert.NotNil(t, encryptor)
}

func TestNewAESEncryptor_InvalidKeyLength(t *testing.T) {
	// Arrange - key too short (not valid base64)
	key := "tooshort!!!"

	// Act
	encryptor, err := encryption.NewAESEncryptor(key)

	// Assert
	assert.Error(t, err)
	assert.Nil(t, encryptor)
	assert.Contains(t, err.Error(), "must be 32 bytes")
}

func TestAESEncryptor_EncryptDecrypt(t *testing.T) {
	// Arrange
	key := generateTestKey(t)
	encryptor, err := encryption.NewAESEncryptor(key)
	require.NoError(t, err)

	plaintext := []byte(`{"connectionId":"conn-1","userId":"user-1"}`)

	// Act
	ciphertext, err := encryptor.Encrypt(plaintext)
	require.NoError(t, err)

	decrypted, err := encryptor.Decrypt(ciphertext)
	require.NoError(t, err)

	// Assert
	assert.NotEqual(t, string(plaintext), ciphertext)
	assert.Equal(t, plaintext, decrypted)
}

func TestAESEncryptor_EncryptProducesDistinctCiphertexts(t *testing.T) {
	// Arrange
	encryptor, err := encryption.NewAESEncryptor(generateTestKey(t))
	require.NoError(t, err)

	// Act - the random nonce must make repeated encryptions differ
	first, err := encryptor.Encrypt([]byte("same input"))
	require.NoError(t, err)
	second, err := encryptor.Encrypt([]byte("same input"))
	require.NoError(t, err)

	// Assert
	assert.NotEqual(t, first, second)
}

func TestAESEncryptor_DecryptWrongKey(t *testing.T) {
	// Arrange
	encryptor, err := encryption.NewAESEncryptor(generateTestKey(t))
	require.NoError(t, err)
	other, err := encryption.NewAESEncryptor(generateTestKey(t))
	require.NoError(t, err)

	ciphertext, err := encryptor.Encrypt([]byte("secret payload"))
	require.NoError(t, err)

	// Act
	decrypted, err := other.Decrypt(ciphertext)

	// Assert
	assert.Error(t, err)
	assert.Nil(t, decrypted)
}

func TestAESEncryptor_DecryptGarbage(t *testing.T) {
	// Arrange
	encryptor, err := encryption.NewAESEncryptor(generateTestKey(t))
	require.NoError(t, err)

	// Act / Assert
	_, err = encryptor.Decrypt("not-base64!!!")
	assert.Error(t, err)

	_, err = encryptor.Decrypt("c2hvcnQ=") // valid base64, shorter than a nonce
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ciphertext too short")
}

func TestNoOpEncryptor_RoundTrip(t *testing.T) {
	// Arrange
	encryptor := encryption.NewNoOpEncryptor()

	// Act
	ciphertext, err := encryptor.Encrypt([]byte("plain"))
	require.NoError(t, err)

	decrypted, err := encryptor.Decrypt(ciphertext)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, []byte("plain"), decrypted)
}
