package login

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateToken(t *testing.T) {
	assert.Error(t, validateToken(""))
	assert.Error(t, validateToken("   "))
	assert.NoError(t, validateToken("tok_123"))
}

func TestStart_ClearsPreviousToken(t *testing.T) {
	m := New(80)
	m.fb.token = "stale"

	m.Start("Token rejected")
	assert.Empty(t, m.fb.token)
	assert.Contains(t, m.View(), "Token rejected")
}

func TestUpdate_IdleIsNoop(t *testing.T) {
	m := New(80)
	next, cmd := m.Update(nil)
	assert.Nil(t, cmd)
	assert.Empty(t, next.View())
}
