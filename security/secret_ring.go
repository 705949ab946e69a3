// Package security holds the webhook shared-secret handling.
package security

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// SecretRing keeps the active webhook signing secret plus the previous one so
// intake keeps validating deliveries signed during a rotation window.
type SecretRing struct {
	mu        sync.RWMutex
	primary   string
	previous  string
	rotatedAt time.Time
	Now       func() time.Time
}

func NewSecretRing(primary string, previous string) (*SecretRing, error) {
	primary = strings.TrimSpace(primary)
	if primary == "" {
		return nil, fmt.Errorf("security: primary webhook secret is required")
	}
	return &SecretRing{
		primary:  primary,
		previous: strings.TrimSpace(previous),
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

// Secrets returns the candidate secrets in verification order, primary first.
func (r *SecretRing) Secrets() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.previous == "" {
		return []string{r.primary}
	}
	return []string{r.primary, r.previous}
}

// Rotate promotes next to primary and keeps the old primary as previous.
func (r *SecretRing) Rotate(next string) error {
	if r == nil {
		return fmt.Errorf("security: secret ring is not configured")
	}
	next = strings.TrimSpace(next)
	if next == "" {
		return fmt.Errorf("security: replacement secret is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.previous = r.primary
	r.primary = next
	if r.Now != nil {
		r.rotatedAt = r.Now().UTC()
	}
	return nil
}

func (r *SecretRing) RotatedAt() time.Time {
	if r == nil {
		return time.Time{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rotatedAt
}
