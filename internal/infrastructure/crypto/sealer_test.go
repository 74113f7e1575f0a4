package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = strings.Repeat("ab", 32)

func TestAESGCMSealer_RoundTrip(t *testing.T) {
	sealer, err := NewAESGCMSealer(testKey)
	require.NoError(t, err)

	sealed, err := sealer.Seal(map[string]interface{}{"pin": "1234"})
	require.NoError(t, err)
	assert.Equal(t, true, sealed["sealed"])
	assert.NotContains(t, sealed["ciphertext"], "1234")

	opened, err := sealer.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "1234", opened["pin"])
}

func TestAESGCMSealer_RejectsTampering(t *testing.T) {
	sealer, err := NewAESGCMSealer(testKey)
	require.NoError(t, err)
	sealed, err := sealer.Seal(map[string]interface{}{"pin": "1234"})
	require.NoError(t, err)

	other, err := NewAESGCMSealer(strings.Repeat("cd", 32))
	require.NoError(t, err)
	_, err = other.Open(sealed)
	assert.Error(t, err)
}

func TestNewSealer(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
		plain   bool
	}{
		{"empty key stores plain", "", false, true},
		{"valid key", testKey, false, false},
		{"not hex", "zz", true, false},
		{"short key", "abcd", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSealer(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			_, isPlain := s.(PlainSealer)
			assert.Equal(t, tt.plain, isPlain)
		})
	}
}
