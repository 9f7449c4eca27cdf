package keygen

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferralCode(t *testing.T) {
	code, err := ReferralCode()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[A-HJ-NP-Z2-9]{8}$`), code)
}

func TestAccountNumber(t *testing.T) {
	tests := []struct {
		prefix  string
		pattern string
	}{
		{"live", `^LIVE-\d{8}$`},
		{"DEMO", `^DEMO-\d{8}$`},
		{"", `^\d{8}$`},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			n, err := AccountNumber(tt.prefix)
			require.NoError(t, err)
			assert.Regexp(t, tt.pattern, n)
		})
	}
}

func TestTransactionRef(t *testing.T) {
	a, b := TransactionRef("dep"), TransactionRef("dep")
	assert.Regexp(t, `^DEP-[0-9A-F]{16}$`, a)
	assert.NotEqual(t, a, b)
}
