package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// ResetSubject marks password-reset tokens so they cannot be presented as
// login tokens and vice versa.
const ResetSubject = "password-reset"

// Claims is the payload of a login token. IssuedAt is always set and is
// compared against the user's password change time on every request.
//
// IssuedAtMicros repeats iat with microsecond resolution so a token minted
// earlier in the same second as a password change can still be told apart.
type Claims struct {
	jwt.RegisteredClaims
	Email          string `json:"email"`
	UserID         string `json:"userId"`
	IssuedAtMicros int64  `json:"iatMicros"`
}

// IssuedAtTime returns the issue time at microsecond resolution.
func (c *Claims) IssuedAtTime() time.Time {
	return time.UnixMicro(c.IssuedAtMicros)
}

// ResetClaims is the payload of a password-reset token.
type ResetClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Signer issues and verifies HS256 tokens with a shared secret.
type Signer struct {
	secret   []byte
	ttl      time.Duration
	resetTTL time.Duration
	now      func() time.Time
}

func NewSigner(secret []byte, ttl, resetTTL time.Duration) *Signer {
	return &Signer{secret: secret, ttl: ttl, resetTTL: resetTTL, now: time.Now}
}

// WithClock replaces the time source used for iat, exp and verification.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	s.now = now
	return s
}

func (s *Signer) Sign(email, userID string) (string, error) {
	return s.SignAt(email, userID, s.now())
}

// SignAt issues a login token whose issue time is at. at must not be in the
// future or the token fails verification until it is reached.
func (s *Signer) SignAt(email, userID string, at time.Time) (string, error) {
	at = at.Truncate(time.Microsecond)
	return s.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(at),
			ExpiresAt: jwt.NewNumericDate(at.Add(s.ttl)),
		},
		Email:          email,
		UserID:         userID,
		IssuedAtMicros: at.UnixMicro(),
	})
}

func (s *Signer) SignReset(email string) (string, error) {
	now := s.now()
	return s.sign(ResetClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ResetSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.resetTTL)),
		},
		Email: email,
	})
}

func (s *Signer) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return tokenString, nil
}

// Verify checks signature and expiry of a login token.
// Every failure is reported as common.ErrTokenInvalid.
func (s *Signer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}

	if claims.UserID == "" || claims.IssuedAt == nil || claims.Subject == ResetSubject {
		return nil, common.ErrTokenInvalid
	}
	if claims.IssuedAtMicros == 0 || claims.IssuedAtTime().Unix() != claims.IssuedAt.Unix() {
		return nil, common.ErrTokenInvalid
	}

	return claims, nil
}

// VerifyReset checks a password-reset token.
func (s *Signer) VerifyReset(tokenString string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	if err := s.parse(tokenString, claims, jwt.WithSubject(ResetSubject)); err != nil {
		return nil, err
	}

	if claims.Email == "" {
		return nil, common.ErrTokenInvalid
	}

	return claims, nil
}

func (s *Signer) parse(tokenString string, claims jwt.Claims, extra ...jwt.ParserOption) error {
	opts := append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	}, extra...)

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: expired", common.ErrTokenInvalid)
		}
		return common.ErrTokenInvalid
	}

	if !token.Valid {
		return common.ErrTokenInvalid
	}

	return nil
}
