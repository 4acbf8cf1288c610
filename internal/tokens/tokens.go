package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenExpired wraps ErrInvalidToken so callers that do not care about
// the distinction can check for ErrInvalidToken only.
var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = fmt.Errorf("%w: expired", ErrInvalidToken)
	ErrMissingSubject = errors.New("claims have no identity id")
	ErrNoSecret       = errors.New("signing secret is empty")
)

const DefaultTTL = 24 * time.Hour

// Claims is the minimal identity carried by an access token. The identity id
// lives in the registered "sub" claim.
type Claims struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() string { return c.Subject }

type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Codec)

func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

func NewCodec(secret []byte, ttl time.Duration, opts ...Option) *Codec {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Codec{secret: secret, ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue signs claims with an issued-at of now and an absolute expiry of
// now+TTL, both at second precision.
func (c *Codec) Issue(claims Claims) (string, time.Time, error) {
	if claims.Subject == "" {
		return "", time.Time{}, ErrMissingSubject
	}
	if len(c.secret) == 0 {
		return "", time.Time{}, ErrNoSecret
	}

	issuedAt := c.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(c.ttl)

	out := Claims{
		Username: claims.Username,
		Name:     claims.Name,
		Role:     claims.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, out).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify checks signature, algorithm and expiry. Any failure is reported as
// ErrInvalidToken; an expired but otherwise good token as ErrTokenExpired.
func (c *Codec) Verify(tokenStr string) (*Claims, error) {
	if tokenStr == "" || len(c.secret) == 0 {
		return nil, ErrInvalidToken
	}

	var claims Claims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !tkn.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
