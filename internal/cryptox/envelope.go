package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/dmitrijs2005/cryptool/internal/common"
	"github.com/dmitrijs2005/cryptool/internal/models"
)

// Envelope layout: <b64url(salt)>.<b64url(iv)>.<keybits>.<b64url(ciphertext||tag)>
// using unpadded URL-safe base64. The envelope is self-describing: Decode
// recovers the cipher version from the IV length alone, so historical data
// never needs external metadata to stay readable.

var envelopeEncoding = base64.RawURLEncoding

// envelopeParams are the per-version cipher knobs. The two versions must
// differ in IV length, which is what version detection keys on.
type envelopeParams struct {
	saltSize   int
	ivSize     int
	keySize    int // bytes
	iterations int
	hash       func() hash.Hash
}

var paramsByVersion = map[models.CipherVersion]envelopeParams{
	models.CipherV1: {
		saltSize:   20,
		ivSize:     16,
		keySize:    32,
		iterations: 1_000,
		hash:       sha1.New,
	},
	models.CipherV2: {
		saltSize:   20,
		ivSize:     12,
		keySize:    16,
		iterations: 250_000,
		hash:       sha256.New,
	},
}

// Encode encrypts plaintext under password with the given cipher version and
// returns the textual envelope. Salt and IV are freshly random on every call,
// so encoding the same input twice yields different envelopes.
func Encode(plaintext, password string, version models.CipherVersion) (string, error) {
	p, ok := paramsByVersion[version]
	if !ok {
		return "", fmt.Errorf("unknown cipher version %q", version)
	}

	salt := common.GenerateRandByteArray(p.saltSize)
	iv := common.GenerateRandByteArray(p.ivSize)

	key := pbkdf2.Key([]byte(password), salt, p.iterations, p.keySize, p.hash)
	defer common.WipeByteArray(key)

	aead, err := newAead(key, p.ivSize)
	if err != nil {
		return "", fmt.Errorf("cipher init: %w", err)
	}
	ciphertext := aead.Seal(nil, iv, []byte(plaintext), nil)

	segments := []string{
		envelopeEncoding.EncodeToString(salt),
		envelopeEncoding.EncodeToString(iv),
		strconv.Itoa(p.keySize * 8),
		envelopeEncoding.EncodeToString(ciphertext),
	}
	return strings.Join(segments, "."), nil
}

// Decode parses the envelope, detects the cipher version from its structure
// and decrypts it under password. Structural problems surface as
// common.ErrMalformedEnvelope; a wrong password or tampered ciphertext
// surfaces as common.ErrDecryption. It never returns garbage plaintext.
func Decode(envelope, password string) (string, error) {
	salt, iv, keyBits, ciphertext, err := splitEnvelope(envelope)
	if err != nil {
		return "", err
	}

	p, ok := detectVersion(len(iv))
	if !ok {
		return "", fmt.Errorf("%w: unrecognized iv length %d", common.ErrMalformedEnvelope, len(iv))
	}
	if keyBits != p.keySize*8 {
		return "", fmt.Errorf("%w: key size %d does not match detected version", common.ErrMalformedEnvelope, keyBits)
	}

	key := pbkdf2.Key([]byte(password), salt, p.iterations, p.keySize, p.hash)
	defer common.WipeByteArray(key)

	aead, err := newAead(key, p.ivSize)
	if err != nil {
		return "", fmt.Errorf("cipher init: %w", err)
	}
	plaintext, err := aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return "", common.ErrDecryption
	}
	return string(plaintext), nil
}

func newAead(key []byte, ivSize int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, ivSize)
}

// detectVersion maps an IV length to the version that produces it.
func detectVersion(ivLen int) (envelopeParams, bool) {
	for _, p := range paramsByVersion {
		if p.ivSize == ivLen {
			return p, true
		}
	}
	return envelopeParams{}, false
}

func splitEnvelope(envelope string) (salt, iv []byte, keyBits int, ciphertext []byte, err error) {
	parts := strings.Split(envelope, ".")
	if len(parts) != 4 {
		return nil, nil, 0, nil, fmt.Errorf("%w: expected 4 segments, got %d", common.ErrMalformedEnvelope, len(parts))
	}

	if salt, err = envelopeEncoding.DecodeString(parts[0]); err != nil {
		return nil, nil, 0, nil, fmt.Errorf("%w: salt: %v", common.ErrMalformedEnvelope, err)
	}
	if iv, err = envelopeEncoding.DecodeString(parts[1]); err != nil {
		return nil, nil, 0, nil, fmt.Errorf("%w: iv: %v", common.ErrMalformedEnvelope, err)
	}
	if keyBits, err = strconv.Atoi(parts[2]); err != nil {
		return nil, nil, 0, nil, fmt.Errorf("%w: key size: %v", common.ErrMalformedEnvelope, err)
	}
	if ciphertext, err = envelopeEncoding.DecodeString(parts[3]); err != nil {
		return nil, nil, 0, nil, fmt.Errorf("%w: ciphertext: %v", common.ErrMalformedEnvelope, err)
	}

	// GCM appends a 16-byte tag; anything shorter cannot authenticate.
	if len(ciphertext) < 16 {
		return nil, nil, 0, nil, fmt.Errorf("%w: truncated ciphertext", common.ErrMalformedEnvelope)
	}
	return salt, iv, keyBits, ciphertext, nil
}
