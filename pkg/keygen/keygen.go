package keygen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	upperAlphaNumeric = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // no 0/O or 1/I
	digits            = "0123456789"
)

// ReferralCode returns an 8 character code an IB hands to referred users
func ReferralCode() (string, error) {
	return randomString(8, upperAlphaNumeric)
}

// AccountNumber returns a trading account number such as "LIVE-40218375".
// The prefix is upper-cased; an empty prefix yields just the digits.
func AccountNumber(prefix string) (string, error) {
	n, err := randomString(8, digits)
	if err != nil {
		return "", err
	}
	if prefix == "" {
		return n, nil
	}
	return fmt.Sprintf("%s-%s", strings.ToUpper(prefix), n), nil
}

// TransactionRef returns a reference for wallet transactions and KYC documents
func TransactionRef(kind string) string {
	ref := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:16])
	return fmt.Sprintf("%s-%s", strings.ToUpper(kind), ref)
}

// randomString generates a random string of given length from the given charset
func randomString(length int, charset string) (string, error) {
	result := make([]byte, length)
	charsetLen := big.NewInt(int64(len(charset)))

	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", err
		}
		result[i] = charset[num.Int64()]
	}

	return string(result), nil
}
