package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// newTestPasswordService uses bcrypt's minimum cost so each hash takes
// milliseconds.
func newTestPasswordService(t *testing.T) *PasswordService {
	t.Helper()
	ps, err := NewPasswordServiceWithCost(bcrypt.MinCost)
	require.NoError(t, err)
	return ps
}

func TestNewPasswordServiceWithCost(t *testing.T) {
	for _, cost := range []int{0, bcrypt.MinCost - 1, bcrypt.MaxCost + 1} {
		_, err := NewPasswordServiceWithCost(cost)
		assert.Error(t, err, "cost %d", cost)
	}

	ps, err := NewPasswordServiceWithCost(5)
	require.NoError(t, err)
	hash, err := ps.Hash("password123")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, 5, cost, "the configured cost is embedded in the hash")
}

func TestHash_SaltsEveryHash(t *testing.T) {
	ps := newTestPasswordService(t)

	first, err := ps.Hash("same-password")
	require.NoError(t, err)
	second, err := ps.Hash("same-password")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(first, "$2"), "not a bcrypt hash: %q", first)
	assert.NotEqual(t, first, second)
	assert.NoError(t, ps.Verify(first, "same-password"))
	assert.NoError(t, ps.Verify(second, "same-password"))
}

func TestHash_LengthLimitCountsBytes(t *testing.T) {
	ps := newTestPasswordService(t)

	cases := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"exactly the limit", strings.Repeat("a", MaxPasswordBytes), false},
		{"one byte over", strings.Repeat("a", MaxPasswordBytes+1), true},
		// 24 three-byte runes are 72 bytes
		{"multibyte at the limit", strings.Repeat("密", MaxPasswordBytes/3), false},
		{"multibyte over the limit", strings.Repeat("密", MaxPasswordBytes/3+1), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hash, err := ps.Hash(tc.password)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, ps.Verify(hash, tc.password))
		})
	}
}

func TestVerify(t *testing.T) {
	ps := newTestPasswordService(t)
	hash, err := ps.Hash("correct-horse")
	require.NoError(t, err)

	cases := []struct {
		name         string
		hash         string
		password     string
		wantMismatch bool
		wantErr      bool
	}{
		{name: "correct", hash: hash, password: "correct-horse"},
		{name: "wrong", hash: hash, password: "wrong-horse", wantMismatch: true, wantErr: true},
		{name: "case matters", hash: hash, password: "Correct-Horse", wantMismatch: true, wantErr: true},
		{name: "empty password", hash: hash, password: "", wantMismatch: true, wantErr: true},
		// accounts created through GitHub have no password
		{name: "empty hash", hash: "", password: "", wantMismatch: true, wantErr: true},
		{name: "corrupt hash", hash: "not-a-bcrypt-hash", password: "correct-horse", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ps.Verify(tc.hash, tc.password)
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.wantMismatch, errors.Is(err, ErrPasswordMismatch))
		})
	}
}
