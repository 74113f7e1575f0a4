package token

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDs(t *testing.T) {
	sid := NewSessionID()
	require.True(t, strings.HasPrefix(sid, "qr_"))
	_, err := uuid.Parse(strings.TrimPrefix(sid, "qr_"))
	assert.NoError(t, err)

	tid := NewTransactionID()
	require.True(t, strings.HasPrefix(tid, "txn_"))
	assert.NotEqual(t, tid, NewTransactionID())
}

func TestSecurityToken(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		tok, err := NewSecurityToken()
		require.NoError(t, err)
		assert.Len(t, tok, 64)
		assert.False(t, seen[tok])
		seen[tok] = true
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("abc", "abc"))
	assert.False(t, Equal("abc", "abd"))
	assert.False(t, Equal("abc", "ab"))
	assert.False(t, Equal("", "x"))
}
