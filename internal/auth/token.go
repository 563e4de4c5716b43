package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// Token verification failures. All of them match shared.ErrTokenInvalid.
var (
	ErrTokenMalformed    = fmt.Errorf("auth: token malformed: %w", shared.ErrTokenInvalid)
	ErrTokenBadSignature = fmt.Errorf("auth: token signature invalid: %w", shared.ErrTokenInvalid)
	ErrTokenExpired      = fmt.Errorf("auth: token expired: %w", shared.ErrTokenInvalid)
	ErrTokenRevoked      = fmt.Errorf("auth: token revoked: %w", shared.ErrTokenInvalid)
)

// MinSecretLength is the shortest accepted HS256 signing key.
const MinSecretLength = 32

// Attributes are the principal-specific claims embedded next to the subject.
type Attributes struct {
	Role       shared.Role
	Name       string
	Department string
	StudentID  string
	RollNo     string
	AdminID    string
}

// Claims is the decoded token payload.
type Claims struct {
	Kind       shared.PrincipalKind `json:"kind"`
	Role       shared.Role          `json:"role"`
	Name       string               `json:"name,omitempty"`
	Department string               `json:"department,omitempty"`
	StudentID  string               `json:"studentId,omitempty"`
	RollNo     string               `json:"rollNo,omitempty"`
	AdminID    string               `json:"adminId,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts verified claims into the request actor.
func (c *Claims) Actor() shared.Actor {
	actor := shared.Actor{
		Subject:    c.Subject,
		Kind:       c.Kind,
		Role:       c.Role,
		Name:       c.Name,
		Department: c.Department,
		TokenID:    c.ID,
	}
	switch c.Kind {
	case shared.KindStudent:
		actor.ID = c.StudentID
	case shared.KindAdmin:
		actor.ID = c.AdminID
	}
	if c.ExpiresAt != nil {
		actor.ExpiresAt = c.ExpiresAt.Time.UTC()
	}
	return actor
}

// Token is an issued bearer token.
type Token struct {
	Value     string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenCodec issues and verifies HS256 signed tokens.
type TokenCodec struct {
	key []byte
	now func() time.Time
}

// CodecOption customises a TokenCodec.
type CodecOption func(*TokenCodec)

// WithClock replaces the wall clock, mainly for expiry tests.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		c.now = now
	}
}

// NewTokenCodec builds a codec over secret.
func NewTokenCodec(secret string, opts ...CodecOption) (*TokenCodec, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: signing secret must be at least %d bytes", MinSecretLength)
	}
	c := &TokenCodec{key: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs a token for subject that expires ttl from now. Token times are
// whole seconds, so the issue instant is rounded up to the next second; the
// token never expires before ttl has elapsed and ExpiresAt is IssuedAt+ttl.
func (c *TokenCodec) Issue(subject string, kind shared.PrincipalKind, attrs Attributes, ttl time.Duration) (Token, error) {
	if subject == "" {
		return Token{}, errors.New("auth: token subject required")
	}
	if ttl <= 0 {
		return Token{}, errors.New("auth: token ttl must be positive")
	}
	issued := ceilSecond(c.now().UTC())
	expires := ceilSecond(issued.Add(ttl))
	claims := Claims{
		Kind:       kind,
		Role:       attrs.Role,
		Name:       attrs.Name,
		Department: attrs.Department,
		StudentID:  attrs.StudentID,
		RollNo:     attrs.RollNo,
		AdminID:    attrs.AdminID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return Token{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return Token{
		Value:     signed,
		ID:        claims.ID,
		IssuedAt:  issued,
		ExpiresAt: expires,
	}, nil
}

func ceilSecond(t time.Time) time.Time {
	floor := t.Truncate(time.Second)
	if floor.Equal(t) {
		return t
	}
	return floor.Add(time.Second)
}

// Verify checks the signature first and expiry second. An expired but
// authentic token yields its claims together with ErrTokenExpired.
func (c *TokenCodec) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	}); err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrTokenBadSignature
		}
		return nil, ErrTokenMalformed
	}
	if claims.Subject == "" || (claims.Kind != shared.KindStudent && claims.Kind != shared.KindAdmin) {
		return nil, ErrTokenMalformed
	}

	validator := jwt.NewValidator(jwt.WithExpirationRequired(), jwt.WithTimeFunc(c.now))
	if err := validator.Validate(claims); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return claims, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// Extract reads a single claim without verifying the signature. It is only
// for diagnostics; authorization must go through Verify.
func (c *TokenCodec) Extract(raw, key string) (any, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, ErrTokenMalformed
	}
	v, ok := claims[key]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return v, nil
}
