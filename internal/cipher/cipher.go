// package cipher encrypts short secrets (Spotify tokens) for storage at rest.
//
// AES-256 in counter mode with a fresh random 16-byte IV per call. Ciphertext
// and IV are hex encoded so the blob can be embedded in a database column.
package cipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/albumranker/internal/shared"
)

// EncryptedBlob is the storage representation of one encrypted secret.
type EncryptedBlob struct {
	Data string `json:"data"` // hex-encoded ciphertext
	IV   string `json:"iv"`   // hex-encoded initialization vector
}

// Cipher performs symmetric encryption with a fixed 32-byte secret.
//
// Encryption is non-deterministic (random IV per call); decryption is
// deterministic given a matching blob.
type Cipher struct {
	secret []byte
}

// New creates a Cipher from a secret that must be exactly 32 bytes.
func New(secret string) (*Cipher, error) {
	if len(secret) != 32 {
		return nil, fmt.Errorf("%w: got %d", shared.ErrInvalidCipherKey, len(secret))
	}
	return &Cipher{secret: []byte(secret)}, nil
}

// Encrypt encrypts plaintext with a fresh random IV.
func (c *Cipher) Encrypt(plaintext string) (EncryptedBlob, error) {
	block, err := aes.NewCipher(c.secret)
	if err != nil {
		return EncryptedBlob{}, fmt.Errorf("failed to create cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return EncryptedBlob{}, fmt.Errorf("failed to generate iv: %w", err)
	}

	data := []byte(plaintext)
	encrypted := make([]byte, len(data))
	cipher.NewCTR(block, iv).XORKeyStream(encrypted, data)

	return EncryptedBlob{
		Data: hex.EncodeToString(encrypted),
		IV:   hex.EncodeToString(iv),
	}, nil
}

// Decrypt reverses Encrypt using the blob's IV. Fails if the blob is
// malformed; a wrong key silently yields garbage, as with any stream cipher.
func (c *Cipher) Decrypt(blob EncryptedBlob) (string, error) {
	iv, err := hex.DecodeString(blob.IV)
	if err != nil {
		return "", fmt.Errorf("%w: malformed iv: %v", shared.ErrDecryptFailed, err)
	}
	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("%w: iv must be %d bytes, got %d", shared.ErrDecryptFailed, aes.BlockSize, len(iv))
	}

	data, err := hex.DecodeString(blob.Data)
	if err != nil {
		return "", fmt.Errorf("%w: malformed ciphertext: %v", shared.ErrDecryptFailed, err)
	}

	block, err := aes.NewCipher(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	decrypted := make([]byte, len(data))
	cipher.NewCTR(block, iv).XORKeyStream(decrypted, data)

	return string(decrypted), nil
}

// EncryptToken encrypts a token and marshals the blob to its JSON column form.
func (c *Cipher) EncryptToken(token string) (string, error) {
	blob, err := c.Encrypt(token)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(blob)
	if err != nil {
		return "", fmt.Errorf("failed to marshal encrypted token: %w", err)
	}

	return string(data), nil
}

// DecryptToken unmarshals a JSON blob column and decrypts the token inside.
func (c *Cipher) DecryptToken(encrypted string) (string, error) {
	var blob EncryptedBlob
	if err := json.Unmarshal([]byte(encrypted), &blob); err != nil {
		return "", fmt.Errorf("%w: malformed token blob: %v", shared.ErrDecryptFailed, err)
	}

	return c.Decrypt(blob)
}
