package hash

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MaxSecretLen is the number of bytes bcrypt actually uses.
const MaxSecretLen = 72

type Hasher struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

func New(cost int) *Hasher {
	if cost < bcrypt.DefaultCost {
		cost = bcrypt.DefaultCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Cost() int { return h.cost }

func (h *Hasher) Hash(secret string) (string, error) {
	hashbytes, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", err
	}

	return string(hashbytes), nil
}

// Verify reports whether secret matches hashed. A malformed or empty hash
// never matches.
func (h *Hasher) Verify(secret, hashed string) bool {
	if hashed == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(secret)) == nil
}

// Dummy burns the same CPU as a failed Verify. Used when the identity does
// not exist so unknown users and wrong passwords take the same time.
func (h *Hasher) Dummy(secret string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("carrental-dummy"), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(secret))
}
