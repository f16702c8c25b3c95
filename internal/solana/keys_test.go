package solana

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAddress(t *testing.T) {
	valid := []string{
		WSOLMint,
		"675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8", // Raydium AMM v4
		"11111111111111111111111111111111",             // system program
	}
	for _, addr := range valid {
		assert.NoError(t, ValidateAddress(addr), addr)
	}

	invalid := []string{
		"",
		"not-base58-0OIl",
		"abc", // too short
		"So11111111111111111111111111111111111111112So11", // wrong length
	}
	for _, addr := range invalid {
		assert.Error(t, ValidateAddress(addr), addr)
	}
}

func TestIsOnCurve(t *testing.T) {
	// The system program address is a valid curve point, as is any deployed
	// program ID.
	assert.True(t, IsOnCurve("11111111111111111111111111111111"))
	assert.True(t, IsOnCurve("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"))

	// PDAs are off curve by construction; the Raydium AMM authority is one.
	assert.False(t, IsOnCurve("5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1"))

	// Garbage never reports on curve.
	assert.False(t, IsOnCurve(""))
	assert.False(t, IsOnCurve("abc"))
	assert.False(t, IsOnCurve("not-base58-0OIl"))
}
