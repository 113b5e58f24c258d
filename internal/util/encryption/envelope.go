package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	masterKeySize = 32
	dataKeySize   = 32
	ivSize        = 16
)

// ErrInvalidMasterKey marks a misconfigured KEK. It is a configuration error
// and must never be conflated with a decryption failure.
var ErrInvalidMasterKey = errors.New("master key must be 32 bytes")

// ErrDecryptionFailed covers authentication-tag mismatches at either envelope
// layer. Fatal and non-retryable: the payload must not reach the restore tool.
var ErrDecryptionFailed = errors.New("envelope decryption failed")

// Envelope is the two-layer encrypted form of a backup payload: the payload is
// encrypted with a per-backup data key, which is itself wrapped by the master
// key. Both layers are AES-256-GCM with the 16-byte authentication tag
// trailing the ciphertext.
type Envelope struct {
	Ciphertext       []byte
	EncryptedDataKey []byte
	DataKeyIV        []byte
	PayloadIV        []byte
}

// DecryptEnvelope unwraps the data key with the master key, then decrypts the
// payload with the recovered data key.
func DecryptEnvelope(
	ciphertext []byte,
	encryptedDataKey []byte,
	dataKeyIV []byte,
	payloadIV []byte,
	masterKey []byte,
) ([]byte, error) {
	if len(masterKey) != masterKeySize {
		return nil, ErrInvalidMasterKey
	}

	dataKey, err := openGCM(masterKey, dataKeyIV, encryptedDataKey)
	if err != nil {
		return nil, fmt.Errorf("%w: data key unwrap: %v", ErrDecryptionFailed, err)
	}

	if len(dataKey) != dataKeySize {
		return nil, fmt.Errorf("%w: unwrapped data key has %d bytes", ErrDecryptionFailed, len(dataKey))
	}

	plaintext, err := openGCM(dataKey, payloadIV, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrDecryptionFailed, err)
	}

	return plaintext, nil
}

// EncryptEnvelope produces a fresh envelope for plaintext: random data key and
// IVs, payload sealed with the data key, data key wrapped with the master key.
func EncryptEnvelope(plaintext []byte, masterKey []byte) (*Envelope, error) {
	if len(masterKey) != masterKeySize {
		return nil, ErrInvalidMasterKey
	}

	dataKey := make([]byte, dataKeySize)
	if _, err := rand.Read(dataKey); err != nil {
		return nil, fmt.Errorf("failed to generate data key: %w", err)
	}

	dataKeyIV := make([]byte, ivSize)
	if _, err := rand.Read(dataKeyIV); err != nil {
		return nil, fmt.Errorf("failed to generate data key IV: %w", err)
	}

	payloadIV := make([]byte, ivSize)
	if _, err := rand.Read(payloadIV); err != nil {
		return nil, fmt.Errorf("failed to generate payload IV: %w", err)
	}

	encryptedDataKey, err := sealGCM(masterKey, dataKeyIV, dataKey)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap data key: %w", err)
	}

	ciphertext, err := sealGCM(dataKey, payloadIV, plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt payload: %w", err)
	}

	return &Envelope{
		Ciphertext:       ciphertext,
		EncryptedDataKey: encryptedDataKey,
		DataKeyIV:        dataKeyIV,
		PayloadIV:        payloadIV,
	}, nil
}

// Checksum is the content hash recorded alongside backups: sha256 hex of the
// plaintext dump.
func Checksum(plaintext []byte) string {
	sum := sha256.Sum256(plaintext)
	return hex.EncodeToString(sum[:])
}

func openGCM(key, iv, sealed []byte) ([]byte, error) {
	aead, err := newGCM(key, len(iv))
	if err != nil {
		return nil, err
	}

	return aead.Open(nil, iv, sealed, nil)
}

func sealGCM(key, iv, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(key, len(iv))
	if err != nil {
		return nil, err
	}

	return aead.Seal(nil, iv, plaintext, nil), nil
}

func newGCM(key []byte, nonceSize int) (cipher.AEAD, error) {
	if nonceSize <= 0 {
		return nil, errors.New("empty IV")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	return cipher.NewGCMWithNonceSize(block, nonceSize)
}
