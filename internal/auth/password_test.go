package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewPasswordService_Cost(t *testing.T) {
	tests := []struct {
		name string
		cost int
		want int
	}{
		{"minimum", bcrypt.MinCost, bcrypt.MinCost},
		{"configured", 10, 10},
		{"maximum", bcrypt.MaxCost, bcrypt.MaxCost},
		{"zero falls back", 0, DefaultCost},
		{"below minimum falls back", bcrypt.MinCost - 1, DefaultCost},
		{"above maximum falls back", bcrypt.MaxCost + 1, DefaultCost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewPasswordService(tt.cost).cost)
		})
	}
}

func TestHash_UsesConfiguredCost(t *testing.T) {
	hash, err := NewPasswordService(5).Hash("donor123")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, 5, cost)
}

func TestHash_Length(t *testing.T) {
	ps := NewPasswordService(bcrypt.MinCost)

	_, err := ps.Hash(strings.Repeat("x", 72))
	assert.NoError(t, err)

	_, err = ps.Hash(strings.Repeat("x", 73))
	assert.Error(t, err, "bcrypt would truncate silently")
}

func TestVerify(t *testing.T) {
	ps := NewPasswordService(bcrypt.MinCost)
	hash, err := ps.Hash("receiver123")
	require.NoError(t, err)

	tests := []struct {
		name     string
		hash     string
		password string
		mismatch bool
		wantErr  bool
	}{
		{name: "correct", hash: hash, password: "receiver123"},
		{name: "wrong", hash: hash, password: "receiver124", mismatch: true, wantErr: true},
		{name: "empty", hash: hash, password: "", mismatch: true, wantErr: true},
		{name: "corrupt hash", hash: "not-bcrypt", password: "receiver123", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ps.Verify(tt.hash, tt.password)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.mismatch, errors.Is(err, ErrPasswordMismatch))
		})
	}
}

func TestHash_Salted(t *testing.T) {
	ps := NewPasswordService(bcrypt.MinCost)

	a, err := ps.Hash("admin123")
	require.NoError(t, err)
	b, err := ps.Hash("admin123")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NoError(t, ps.Verify(a, "admin123"))
	assert.NoError(t, ps.Verify(b, "admin123"))
}
