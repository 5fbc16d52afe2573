package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
	"martbuild/pkg/models"
)

const (
	encryptedPrefix = "ENC["
	encryptedSuffix = "]"

	// pbkdf2Iterations follows the OWASP recommendation for SHA-256.
	pbkdf2Iterations = 600000
)

// keySalt is fixed so the same passphrase always derives the same key.
// Secrecy lives in the passphrase, not the salt.
var keySalt = []byte("martbuild.credentials.v1")

// getEncryptionKey derives an encryption key from environment or machine ID
func getEncryptionKey() []byte {
	// Explicit passphrase takes precedence
	if key := os.Getenv("MARTBUILD_ENCRYPTION_KEY"); key != "" {
		return pbkdf2.Key([]byte(key), keySalt, pbkdf2Iterations, 32, sha256.New)
	}

	// Fall back to a machine-specific key so credentials at rest are at
	// least not portable between hosts
	hostname, _ := os.Hostname()
	homeDir, _ := os.UserHomeDir()
	machineID := fmt.Sprintf("%s-%s-martbuild", hostname, homeDir)
	hash := sha256.Sum256([]byte(machineID))
	return hash[:]
}

// EncryptPassword encrypts a password using AES-256-GCM
func EncryptPassword(password string) (string, error) {
	if password == "" {
		return "", nil
	}

	if IsEncrypted(password) {
		return password, nil
	}

	key := getEncryptionKey()

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(password), nil)
	encoded := base64.StdEncoding.EncodeToString(ciphertext)

	return fmt.Sprintf("%s%s%s", encryptedPrefix, encoded, encryptedSuffix), nil
}

// DecryptPassword decrypts a password encrypted with EncryptPassword
func DecryptPassword(encrypted string) (string, error) {
	if encrypted == "" {
		return "", nil
	}

	if !IsEncrypted(encrypted) {
		return encrypted, nil
	}

	encoded := strings.TrimPrefix(encrypted, encryptedPrefix)
	encoded = strings.TrimSuffix(encoded, encryptedSuffix)

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode encrypted password: %w", err)
	}

	key := getEncryptionKey()

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt password: %w", err)
	}

	return string(plaintext), nil
}

// IsEncrypted checks if a string is encrypted
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, encryptedPrefix) && strings.HasSuffix(value, encryptedSuffix)
}

// EncryptConfigPasswords encrypts all credentials in a config before it is
// written to disk
func EncryptConfigPasswords(config *models.Config) error {
	if config.Snowflake.Password != "" && !IsEncrypted(config.Snowflake.Password) {
		encrypted, err := EncryptPassword(config.Snowflake.Password)
		if err != nil {
			return fmt.Errorf("failed to encrypt Snowflake password: %w", err)
		}
		config.Snowflake.Password = encrypted
	}

	return nil
}

// DecryptConfigPasswords decrypts all credentials in a loaded config
func DecryptConfigPasswords(config *models.Config) error {
	if IsEncrypted(config.Snowflake.Password) {
		decrypted, err := DecryptPassword(config.Snowflake.Password)
		if err != nil {
			return fmt.Errorf("failed to decrypt Snowflake password: %w", err)
		}
		config.Snowflake.Password = decrypted
	}

	return nil
}
