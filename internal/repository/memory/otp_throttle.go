package memory

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// OtpThrottle remembers recent OTP requests per contact so codes are not re-sent inside the cooldown.
type OtpThrottle struct {
	cache    *cache.Cache
	cooldown time.Duration
}

func NewOtpThrottle(cooldown time.Duration) *OtpThrottle {
	return &OtpThrottle{
		cache:    cache.New(cooldown, 10*time.Minute),
		cooldown: cooldown,
	}
}

// Allow records the request and reports whether it may proceed.
// A denied request returns how long the caller has to wait.
func (t *OtpThrottle) Allow(key string) (bool, time.Duration) {
	if t.cooldown <= 0 {
		return true, 0
	}
	if _, expiresAt, found := t.cache.GetWithExpiration(key); found {
		return false, time.Until(expiresAt)
	}
	// Add fails if a concurrent request stored the key first
	if err := t.cache.Add(key, struct{}{}, t.cooldown); err != nil {
		return false, t.cooldown
	}
	return true, 0
}

// Reset drops the cooldown, used when a send fails and the user should be able to retry.
func (t *OtpThrottle) Reset(key string) {
	t.cache.Delete(key)
}
