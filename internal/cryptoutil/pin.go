package cryptoutil

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"os"

	"golang.org/x/crypto/bcrypt"
)

// PepperEnv names the env var whose value is appended to every PIN
// before hashing.
const PepperEnv = "PIN_HASH_PEPPER"

// DefaultPinLength is the digit count of generated clinician PINs.
const DefaultPinLength = 6

// GeneratePin returns a random numeric PIN of the given length with no
// leading zero. Lengths below one fall back to the default.
func GeneratePin(length int) (string, error) {
	if length < 1 {
		length = DefaultPinLength
	}
	min := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length-1)), nil)
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	span := new(big.Int).Sub(max, min)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("cryptoutil: generate pin: %w", err)
	}
	return n.Add(n, min).String(), nil
}

// HashPin hashes a PIN with bcrypt. The pepper from the environment is
// mixed in when set.
func HashPin(pin string) (string, error) {
	if pin == "" {
		return "", fmt.Errorf("cryptoutil: pin is required")
	}
	hash, err := bcrypt.GenerateFromPassword(pepperPin(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("cryptoutil: hash pin: %w", err)
	}
	return string(hash), nil
}

// VerifyPin reports whether the PIN matches the stored hash. Any
// comparison failure reads as a mismatch.
func VerifyPin(pin, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), pepperPin(pin)) == nil
}

func pepperPin(pin string) []byte {
	return []byte(pin + os.Getenv(PepperEnv))
}
