package cryptox

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/cryptool/internal/common"
	"github.com/dmitrijs2005/cryptool/internal/models"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		plaintext string
		password  string
		version   models.CipherVersion
	}{
		{"v2 simple", "hello", "testAA", models.CipherV2},
		{"v1 simple", "hello", "testAA", models.CipherV1},
		{"v2 empty plaintext", "", "testAA", models.CipherV2},
		{"v2 unicode", "пароль 密码 🔐", "pässwörd", models.CipherV2},
		{"v1 long text", strings.Repeat("lorem ipsum ", 200), "w", models.CipherV1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envelope, err := Encode(tt.plaintext, tt.password, tt.version)
			require.NoError(t, err)

			decoded, err := Decode(envelope, tt.password)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, decoded)
		})
	}
}

func TestEncodeProducesFourSegmentEnvelope(t *testing.T) {
	envelope, err := Encode("hello", "testAA", models.CipherV2)
	require.NoError(t, err)

	parts := strings.Split(envelope, ".")
	require.Len(t, parts, 4)

	salt, err := base64.RawURLEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	assert.Len(t, salt, 20)

	iv, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	assert.Len(t, iv, 12)

	assert.Equal(t, "128", parts[2])
}

func TestEncodeIsNonDeterministic(t *testing.T) {
	a, err := Encode("hello", "testAA", models.CipherV2)
	require.NoError(t, err)
	b, err := Encode("hello", "testAA", models.CipherV2)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)

	for _, envelope := range []string{a, b} {
		decoded, err := Decode(envelope, "testAA")
		require.NoError(t, err)
		assert.Equal(t, "hello", decoded)
	}
}

func TestDecodeWrongPassword(t *testing.T) {
	for _, version := range []models.CipherVersion{models.CipherV1, models.CipherV2} {
		envelope, err := Encode("hello", "password-one", version)
		require.NoError(t, err)

		_, err = Decode(envelope, "password-two")
		assert.ErrorIs(t, err, common.ErrDecryption, "version %s", version)
	}
}

// Legacy envelopes must keep decoding without the caller naming the version:
// the IV length embedded in the envelope selects the parameters.
func TestDecodeDetectsVersionFromEnvelope(t *testing.T) {
	legacy, err := Encode("old data", "testAA", models.CipherV1)
	require.NoError(t, err)
	current, err := Encode("new data", "testAA", models.CipherV2)
	require.NoError(t, err)

	assert.Equal(t, "256", strings.Split(legacy, ".")[2])
	assert.Equal(t, "128", strings.Split(current, ".")[2])

	decoded, err := Decode(legacy, "testAA")
	require.NoError(t, err)
	assert.Equal(t, "old data", decoded)

	decoded, err = Decode(current, "testAA")
	require.NoError(t, err)
	assert.Equal(t, "new data", decoded)
}

func TestDecodeMalformedEnvelope(t *testing.T) {
	valid, err := Encode("hello", "testAA", models.CipherV2)
	require.NoError(t, err)
	parts := strings.Split(valid, ".")

	tests := []struct {
		name     string
		envelope string
	}{
		{"empty", ""},
		{"too few segments", parts[0] + "." + parts[1] + "." + parts[2]},
		{"too many segments", valid + ".extra"},
		{"invalid base64 salt", "!!!." + parts[1] + "." + parts[2] + "." + parts[3]},
		{"invalid base64 ciphertext", parts[0] + "." + parts[1] + "." + parts[2] + ".!!!"},
		{"non-numeric key size", parts[0] + "." + parts[1] + ".abc." + parts[3]},
		{"key size mismatch", parts[0] + "." + parts[1] + ".256." + parts[3]},
		{"unknown iv length", parts[0] + ".AAAA." + parts[2] + "." + parts[3]},
		{"truncated ciphertext", parts[0] + "." + parts[1] + "." + parts[2] + ".AAAA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.envelope, "testAA")
			assert.ErrorIs(t, err, common.ErrMalformedEnvelope)
		})
	}
}

func TestDecodeTamperedCiphertext(t *testing.T) {
	envelope, err := Encode("hello", "testAA", models.CipherV2)
	require.NoError(t, err)
	parts := strings.Split(envelope, ".")

	ciphertext, err := base64.RawURLEncoding.DecodeString(parts[3])
	require.NoError(t, err)
	ciphertext[0] ^= 0xff
	parts[3] = base64.RawURLEncoding.EncodeToString(ciphertext)

	_, err = Decode(strings.Join(parts, "."), "testAA")
	assert.ErrorIs(t, err, common.ErrDecryption)
}
