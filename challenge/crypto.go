package challenge

import (
	"bytes"
	"compress/zlib"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"
	"strings"

	"github.com/rumsan/gatekeeper/core"
)

const (
	ivSize  = 16
	tagSize = 16
)

// keyFromSecret stretches a secret of any length into a fixed AES-256 key.
func keyFromSecret(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// encrypt seals plaintext with AES-256-GCM under a fresh random IV and packs
// the result for transport: hex(iv):hex(tag):hex(ciphertext), deflated, then
// base64-encoded.
func encrypt(plaintext []byte, secret string) (string, error) {
	block, err := aes.NewCipher(keyFromSecret(secret))
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return "", err
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}

	// Seal appends the tag to the ciphertext; the wire format carries them
	// as separate hex fields.
	sealed := gcm.Seal(nil, iv, plaintext, nil)
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	combined := hex.EncodeToString(iv) + ":" + hex.EncodeToString(tag) + ":" + hex.EncodeToString(ciphertext)

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write([]byte(combined)); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// decrypt reverses encrypt. Every failure mode, bad base64, bad zlib
// stream, missing delimiter, bad hex, tag mismatch, collapses into
// core.ErrDecryptionFailed so callers cannot distinguish tampering from
// corruption. Strict base64 decoding rejects non-zero trailing padding
// bits, so no two distinct token strings decode to the same bytes.
func decrypt(token, secret string) ([]byte, error) {
	compressed, err := base64.StdEncoding.Strict().DecodeString(token)
	if err != nil {
		return nil, core.ErrDecryptionFailed
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, core.ErrDecryptionFailed
	}
	combined, err := io.ReadAll(zr)
	if err != nil {
		return nil, core.ErrDecryptionFailed
	}

	parts := strings.Split(string(combined), ":")
	if len(parts) != 3 {
		return nil, core.ErrDecryptionFailed
	}

	iv, ivErr := hex.DecodeString(parts[0])
	tag, tagErr := hex.DecodeString(parts[1])
	ciphertext, ctErr := hex.DecodeString(parts[2])
	if ivErr != nil || tagErr != nil || ctErr != nil || len(iv) != ivSize || len(tag) != tagSize {
		return nil, core.ErrDecryptionFailed
	}

	block, err := aes.NewCipher(keyFromSecret(secret))
	if err != nil {
		return nil, core.ErrDecryptionFailed
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, core.ErrDecryptionFailed
	}

	plaintext, err := gcm.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, core.ErrDecryptionFailed
	}

	return plaintext, nil
}
