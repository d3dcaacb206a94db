// Package auth gates the authoring UI behind one privileged address.
// This is a convenience gate, not a security boundary: the configured
// address is client-visible in spirit, the flag only reveals affordances,
// and the post repository itself performs no authorization.
package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
	"sync"

	"gblog/internal/store"
)

var ErrAccessDenied = errors.New("access denied")

const adminFlagKey = "admin"

// Gate matches a submitted address against the configured privileged one
// and keeps the resulting admin flag, persisted so the session survives a
// restart. Two states only: logged out and logged in.
type Gate struct {
	mu    sync.RWMutex
	plain string
	hash  *Argon2idHash
	store *store.Store
	admin bool
}

// NewGate builds the gate from config. adminHash, when set, is the
// argon2id PHC form of the normalized address and wins over the plain
// form. With neither configured the gate is nil and the site is
// read-only.
func NewGate(adminEmail, adminHash string, s *store.Store) (*Gate, error) {
	g := &Gate{
		plain: normalize(adminEmail),
		store: s,
	}
	if adminHash != "" {
		hash, err := ParseArgon2idHash(adminHash)
		if err != nil {
			return nil, err
		}
		g.hash = hash
	}
	if g.plain == "" && g.hash == nil {
		return nil, nil
	}

	if v, ok := s.Get(adminFlagKey); ok && v == "true" {
		g.admin = true
	}
	return g, nil
}

func (g *Gate) IsAdmin() bool {
	if g == nil {
		return false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.admin
}

// Login compares the submitted address, ignoring case and surrounding
// whitespace. A match flips and persists the admin flag; a mismatch
// reports the same generic error regardless of cause and writes nothing.
func (g *Gate) Login(input string) error {
	if g == nil {
		return ErrAccessDenied
	}
	if !g.verify(normalize(input)) {
		return ErrAccessDenied
	}

	g.mu.Lock()
	g.admin = true
	g.mu.Unlock()
	return g.store.Set(adminFlagKey, "true")
}

func (g *Gate) Logout() error {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	g.admin = false
	g.mu.Unlock()
	return g.store.Delete(adminFlagKey)
}

func (g *Gate) verify(address string) bool {
	if g.hash != nil {
		return g.hash.Verify(address)
	}
	return subtle.ConstantTimeCompare([]byte(g.plain), []byte(address)) == 1
}

func normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
