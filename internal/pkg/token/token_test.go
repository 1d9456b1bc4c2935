package token

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_LengthAndURLSafety(t *testing.T) {
	generated, err := Generate()
	require.NoError(t, err)

	// 32 bytes of entropy in unpadded base64url is always 43 characters
	assert.Len(t, generated, 43)
	assert.Equal(t, generated, url.PathEscape(generated))
}

func TestGenerate_NoRepeats(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		generated, err := Generate()
		require.NoError(t, err)
		_, dup := seen[generated]
		require.False(t, dup)
		seen[generated] = struct{}{}
	}
}

func TestExpiryForDueDate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Future due date: one day of grace past it
	due := now.Add(7 * 24 * time.Hour)
	assert.Equal(t, due.Add(24*time.Hour), ExpiryForDueDate(due, now))

	// Already-lapsed due date: fall back to the reminder window
	lapsed := now.Add(-72 * time.Hour)
	assert.Equal(t, now.Add(ReminderWindow), ExpiryForDueDate(lapsed, now))
}
