package hash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNew_RaisesCostToMinimum(t *testing.T) {
	t.Parallel()

	assert.Equal(t, bcrypt.DefaultCost, New(4).Cost())
	assert.Equal(t, 12, New(12).Cost())
}

func TestHasher_HashAndVerify(t *testing.T) {
	t.Parallel()

	h := New(bcrypt.DefaultCost)
	secrets := []string{"secret123", "p@ss word", "ünïcødé"}

	for _, s := range secrets {
		s := s
		t.Run(s, func(t *testing.T) {
			t.Parallel()

			hashed, err := h.Hash(s)
			require.NoError(t, err)
			assert.NotEqual(t, s, hashed)

			cost, err := bcrypt.Cost([]byte(hashed))
			require.NoError(t, err)
			assert.GreaterOrEqual(t, cost, 10)

			assert.True(t, h.Verify(s, hashed))
			assert.False(t, h.Verify(s+"x", hashed))
		})
	}
}

func TestHasher_SaltsEachHash(t *testing.T) {
	t.Parallel()

	h := New(bcrypt.DefaultCost)
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHasher_Verify_MalformedHash(t *testing.T) {
	t.Parallel()

	h := New(bcrypt.DefaultCost)
	for _, hashed := range []string{"", "not-a-hash", "$2a$10$short", "secret"} {
		assert.NotPanics(t, func() {
			assert.False(t, h.Verify("secret", hashed))
		})
	}
}

func TestHasher_Hash_TooLong(t *testing.T) {
	t.Parallel()

	_, err := New(bcrypt.DefaultCost).Hash(strings.Repeat("a", MaxSecretLen+1))
	require.Error(t, err)
}

func TestHasher_Dummy_DoesNotPanic(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() { New(bcrypt.DefaultCost).Dummy("anything") })
}
