package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// GenerateID generates a unique ID with the given prefix
func GenerateID(prefix string) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 10

	result := make([]byte, length)
	for i := range result {
		num, _ := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		result[i] = charset[num.Int64()]
	}

	return fmt.Sprintf("%s-%s", prefix, string(result))
}

// GenerateAccountNumber generates a random 10-digit account number,
// zero-padded on the left.
func GenerateAccountNumber() string {
	num, _ := rand.Int(rand.Reader, big.NewInt(10000000000))
	return fmt.Sprintf("%010d", num.Int64())
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword checks if a password matches a hash
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// ValidateAccountNumber validates the account number format: exactly 10
// numeric digits.
func ValidateAccountNumber(accountNumber string) bool {
	if len(accountNumber) != 10 {
		return false
	}
	for _, c := range accountNumber {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// NormalizeTaxID strips formatting characters from a national tax ID,
// keeping digits only.
func NormalizeTaxID(taxID string) string {
	var b strings.Builder
	for _, c := range taxID {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// ValidateTaxID runs the full 11-digit check-digit validation over a
// normalized tax ID. IDs made of a single repeated digit pass the checksum
// arithmetic but are reserved values and always rejected.
func ValidateTaxID(taxID string) bool {
	if len(taxID) != 11 {
		return false
	}
	allSame := true
	for i := 0; i < 11; i++ {
		if taxID[i] < '0' || taxID[i] > '9' {
			return false
		}
		if taxID[i] != taxID[0] {
			allSame = false
		}
	}
	if allSame {
		return false
	}

	// First check digit: weights 10..2 over the first 9 digits.
	sum := 0
	for i := 0; i < 9; i++ {
		sum += int(taxID[i]-'0') * (10 - i)
	}
	digit1 := 0
	if remainder := sum % 11; remainder >= 2 {
		digit1 = 11 - remainder
	}
	if digit1 != int(taxID[9]-'0') {
		return false
	}

	// Second check digit: weights 11..2 over the first 10 digits.
	sum = 0
	for i := 0; i < 10; i++ {
		sum += int(taxID[i]-'0') * (11 - i)
	}
	digit2 := 0
	if remainder := sum % 11; remainder >= 2 {
		digit2 = 11 - remainder
	}
	return digit2 == int(taxID[10]-'0')
}
