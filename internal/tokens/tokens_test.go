package tokens

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-jwt-secret-0123456789abcdef0123")

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestCodec_IssueVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	codec := NewCodec(testSecret, time.Hour, WithClock(clk.Now))
	userID := uuid.NewString()

	token, exp, err := codec.Issue(Claims{
		Username:         "alice",
		Name:             "Alice",
		Role:             "admin",
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, clk.Now().Add(time.Hour), exp)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID())
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "Alice", claims.Name)
	assert.Equal(t, "admin", claims.Role)
	require.NotNil(t, claims.IssuedAt)
	require.NotNil(t, claims.ExpiresAt)
	assert.Equal(t, time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestCodec_Issue_RequiresSubject(t *testing.T) {
	t.Parallel()

	_, _, err := NewCodec(testSecret, time.Hour).Issue(Claims{Username: "bob"})
	require.ErrorIs(t, err, ErrMissingSubject)
}

func TestCodec_Issue_RequiresSecret(t *testing.T) {
	t.Parallel()

	_, _, err := NewCodec(nil, time.Hour).Issue(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "x"}})
	require.ErrorIs(t, err, ErrNoSecret)
}

func TestCodec_Verify_Expiry(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	codec := NewCodec(testSecret, 24*time.Hour, WithClock(clk.Now))
	token, _, err := codec.Issue(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}})
	require.NoError(t, err)

	clk.Advance(24*time.Hour - time.Second)
	_, err = codec.Verify(token)
	require.NoError(t, err)

	clk.Advance(time.Second)
	_, err = codec.Verify(token)
	require.ErrorIs(t, err, ErrTokenExpired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	clk.Advance(time.Hour)
	_, err = codec.Verify(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestCodec_Verify_Rejects(t *testing.T) {
	t.Parallel()

	codec := NewCodec(testSecret, time.Hour)
	valid, _, err := codec.Issue(Claims{Role: "user", RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}})
	require.NoError(t, err)

	otherSecret, _, err := NewCodec([]byte("another-secret-0123456789abcdef012"), time.Hour).
		Issue(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}})
	require.NoError(t, err)

	parts := strings.Split(valid, ".")
	require.Len(t, parts, 3)
	tamperedPayload, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:             "admin",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("attacker"))
	require.NoError(t, err)
	tampered := strings.Split(tamperedPayload, ".")[0] + "." + strings.Split(tamperedPayload, ".")[1] + "." + parts[2]

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(testSecret)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	}).SignedString(testSecret)
	require.NoError(t, err)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(testSecret)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"other secret", otherSecret},
		{"tampered payload", tampered},
		{"alg none", noneAlg},
		{"unexpected alg", hs512},
		{"no expiry", noExp},
		{"no subject", noSub},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			claims, err := codec.Verify(tt.token)
			require.Error(t, err)
			assert.Nil(t, claims)
			assert.True(t, errors.Is(err, ErrInvalidToken))
		})
	}
}

func TestNewCodec_DefaultTTL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultTTL, NewCodec(testSecret, 0).TTL())
}
