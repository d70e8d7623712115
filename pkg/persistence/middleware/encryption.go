package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
	"github.com/aretw0/canopy/pkg/schema"
)

// encryptedMarker flags an opaque record envelope in metadata.
const encryptedMarker = "__encrypted__"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new records.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.RunStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts recorded
// events using AES-GCM. Stored records become opaque envelopes: the
// event kind and payload are hidden from the backing store.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.RunStore) ports.RunStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) Append(ctx context.Context, rec domain.StepRecord) error {
	plainText, err := schema.Encode(rec.Event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt event: %w", err)
	}

	// The opaque envelope hides the original kind and payload; only
	// bookkeeping fields remain visible to the backing store.
	rec.Event = domain.Result{
		Data:        base64.StdEncoding.EncodeToString(ciphertext),
		DisplayType: "encrypted",
		Metadata:    map[string]any{encryptedMarker: true},
	}
	return m.next.Append(ctx, rec)
}

func (m *encryptionMiddleware) List(ctx context.Context, runID string) ([]domain.StepRecord, error) {
	records, err := m.next.List(ctx, runID)
	if err != nil {
		return nil, err
	}

	for i, rec := range records {
		envelope, ok := rec.Event.(domain.Result)
		if !ok || envelope.Metadata[encryptedMarker] != true {
			// Fail secure: with encryption configured, plain records
			// in the store are unexpected.
			return nil, errors.New("record is missing encrypted data envelope")
		}
		encoded, ok := envelope.Data.(string)
		if !ok {
			return nil, errors.New("encrypted envelope carries no ciphertext")
		}
		ciphertext, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
		}

		plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt event: %w", err)
		}

		ev, err := schema.Decode(plainText)
		if err != nil {
			return nil, fmt.Errorf("failed to decode decrypted event: %w", err)
		}
		records[i].Event = ev
	}
	return records, nil
}

func (m *encryptionMiddleware) Runs(ctx context.Context) ([]domain.RunInfo, error) {
	return m.next.Runs(ctx)
}

func (m *encryptionMiddleware) Delete(ctx context.Context, runID string) error {
	return m.next.Delete(ctx, runID)
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	// Try active key first
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	// Try fallbacks in order
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertextBytes := ciphertext[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertextBytes, nil)
}
