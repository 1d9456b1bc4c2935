// Package token generates the single-use bearer tokens that grant
// anonymous access to one declaration task's form.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// entropyBytes gives 256 bits of entropy per token. Collisions are
// negligible at this size, so no uniqueness constraint is enforced.
const entropyBytes = 32

// ReminderWindow is the fixed validity window used when a link is
// regenerated outside the normal due-date flow.
const ReminderWindow = 30 * 24 * time.Hour

// Generate returns a URL-safe random access token
func Generate() (string, error) {
	buf := make([]byte, entropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ExpiryForDueDate returns the token expiry for a task due date: one day
// of grace past the due date, or the fixed reminder window when the due
// date has already passed.
func ExpiryForDueDate(dueDate time.Time, now time.Time) time.Time {
	expiry := dueDate.Add(24 * time.Hour)
	if expiry.Before(now) {
		return now.Add(ReminderWindow)
	}
	return expiry
}
