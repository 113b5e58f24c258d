package encryption

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeMasterKey(t *testing.T) []byte {
	t.Helper()

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	return key
}

func Test_EncryptEnvelope_RoundTrip_RecoversPlaintext(t *testing.T) {
	masterKey := makeMasterKey(t)
	plaintext := []byte("CREATE SCHEMA tenant_a; CREATE TABLE tenant_a.users (id uuid);")

	envelope, err := EncryptEnvelope(plaintext, masterKey)
	require.NoError(t, err)

	assert.NotEqual(t, plaintext, envelope.Ciphertext)
	assert.Len(t, envelope.DataKeyIV, 16)
	assert.Len(t, envelope.PayloadIV, 16)

	recovered, err := DecryptEnvelope(
		envelope.Ciphertext,
		envelope.EncryptedDataKey,
		envelope.DataKeyIV,
		envelope.PayloadIV,
		masterKey,
	)
	require.NoError(t, err)
	assert.Equal(t, plaintext, recovered)
}

func Test_EncryptEnvelope_EmptyPayload_RoundTrips(t *testing.T) {
	masterKey := makeMasterKey(t)

	envelope, err := EncryptEnvelope([]byte{}, masterKey)
	require.NoError(t, err)

	recovered, err := DecryptEnvelope(
		envelope.Ciphertext,
		envelope.EncryptedDataKey,
		envelope.DataKeyIV,
		envelope.PayloadIV,
		masterKey,
	)
	require.NoError(t, err)
	assert.Empty(t, recovered)
}

func Test_EncryptEnvelope_ShortMasterKey_ReturnsInvalidMasterKey(t *testing.T) {
	_, err := EncryptEnvelope([]byte("payload"), make([]byte, 16))

	assert.ErrorIs(t, err, ErrInvalidMasterKey)
}

func Test_DecryptEnvelope_ShortMasterKey_ReturnsInvalidMasterKey(t *testing.T) {
	masterKey := makeMasterKey(t)

	envelope, err := EncryptEnvelope([]byte("payload"), masterKey)
	require.NoError(t, err)

	_, err = DecryptEnvelope(
		envelope.Ciphertext,
		envelope.EncryptedDataKey,
		envelope.DataKeyIV,
		envelope.PayloadIV,
		masterKey[:31],
	)

	assert.ErrorIs(t, err, ErrInvalidMasterKey)
}

func Test_DecryptEnvelope_WrongMasterKey_ReturnsDecryptionFailed(t *testing.T) {
	masterKey := makeMasterKey(t)
	otherKey := makeMasterKey(t)

	envelope, err := EncryptEnvelope([]byte("payload"), masterKey)
	require.NoError(t, err)

	_, err = DecryptEnvelope(
		envelope.Ciphertext,
		envelope.EncryptedDataKey,
		envelope.DataKeyIV,
		envelope.PayloadIV,
		otherKey,
	)

	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func Test_DecryptEnvelope_TamperedCiphertext_ReturnsDecryptionFailed(t *testing.T) {
	masterKey := makeMasterKey(t)

	envelope, err := EncryptEnvelope([]byte("payload"), masterKey)
	require.NoError(t, err)

	tampered := bytes.Clone(envelope.Ciphertext)
	tampered[0] ^= 0x01

	_, err = DecryptEnvelope(
		tampered,
		envelope.EncryptedDataKey,
		envelope.DataKeyIV,
		envelope.PayloadIV,
		masterKey,
	)

	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func Test_DecryptEnvelope_TamperedAuthTag_ReturnsDecryptionFailed(t *testing.T) {
	masterKey := makeMasterKey(t)

	envelope, err := EncryptEnvelope([]byte("payload"), masterKey)
	require.NoError(t, err)

	// the 16-byte GCM tag trails the ciphertext
	tampered := bytes.Clone(envelope.Ciphertext)
	tampered[len(tampered)-1] ^= 0x01

	_, err = DecryptEnvelope(
		tampered,
		envelope.EncryptedDataKey,
		envelope.DataKeyIV,
		envelope.PayloadIV,
		masterKey,
	)

	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func Test_DecryptEnvelope_TamperedDataKey_ReturnsDecryptionFailed(t *testing.T) {
	masterKey := makeMasterKey(t)

	envelope, err := EncryptEnvelope([]byte("payload"), masterKey)
	require.NoError(t, err)

	tampered := bytes.Clone(envelope.EncryptedDataKey)
	tampered[3] ^= 0xff

	_, err = DecryptEnvelope(
		envelope.Ciphertext,
		tampered,
		envelope.DataKeyIV,
		envelope.PayloadIV,
		masterKey,
	)

	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func Test_Checksum_SamePayload_IsStable(t *testing.T) {
	payload := []byte("dump contents")

	assert.Equal(t, Checksum(payload), Checksum(payload))
	assert.NotEqual(t, Checksum(payload), Checksum([]byte("other contents")))
	assert.Len(t, Checksum(payload), 64)
}
