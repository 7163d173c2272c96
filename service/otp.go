package service

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

const otpDigits = 6

var otpMax = big.NewInt(1_000_000)

// generateOTP returns a 6-digit numeric one-time code drawn uniformly from
// crypto/rand.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpMax)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// hashOTP returns the hex-encoded SHA-256 of a code. Only the hash is ever
// stored.
func hashOTP(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// otpEqual compares a submitted code against a stored hash in constant
// time.
func otpEqual(code, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(hashOTP(code)), []byte(storedHash)) == 1
}
