package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndCheckPassword(t *testing.T) {
	var u User
	require.NoError(t, u.SetPassword("password123"))
	assert.NotEqual(t, "password123", u.Password)
	assert.True(t, u.CheckPassword("password123"))
	assert.False(t, u.CheckPassword("wrong"))
}

func TestIsLocked(t *testing.T) {
	var u User
	assert.False(t, u.IsLocked())

	future := time.Now().Add(time.Hour)
	u.LockedUntil = &future
	assert.True(t, u.IsLocked())

	past := time.Now().Add(-time.Hour)
	u.LockedUntil = &past
	assert.False(t, u.IsLocked())
}

func TestIsActive(t *testing.T) {
	u := User{Enabled: true}
	assert.True(t, u.IsActive())

	u.Enabled = false
	assert.False(t, u.IsActive())

	u.Enabled = true
	future := time.Now().Add(time.Hour)
	u.LockedUntil = &future
	assert.False(t, u.IsActive())
}
