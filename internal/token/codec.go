// Package token signs and verifies the bearer credentials issued by the
// license server. Tokens are HS256 JWTs over a single shared secret; the
// entire trust model rests on that secret staying secret.
package token

import (
	"errors"
	"fmt"
	"time"

	jwtgo "github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingSecret      = errors.New("token: missing secret")
	ErrInvalidToken       = errors.New("token: invalid token")
	ErrExpiredToken       = errors.New("token: expired token")
	ErrUnknownTokenType   = errors.New("token: unknown token type")
	ErrUnexpectedTokenAlg = errors.New("token: unexpected signing method")
)

// Codec signs and verifies tokens with a shared secret.
type Codec struct {
	signingKey []byte
	now        func() time.Time
}

// NewCodec creates a codec for the given shared secret.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Codec{
		signingKey: []byte(secret),
		now:        time.Now,
	}, nil
}

// Sign produces a signed token carrying the given claims. A zero ttl means
// the token never expires (used for issuance tokens).
func (c *Codec) Sign(claims Claims, ttl time.Duration) (string, error) {
	var payload jwtgo.MapClaims
	switch v := claims.(type) {
	case ActivationClaims:
		payload = v.mapClaims()
	case IssuanceClaims:
		payload = v.mapClaims()
	case AdminClaims:
		payload = v.mapClaims()
	default:
		return "", fmt.Errorf("%w: %T", ErrUnknownTokenType, claims)
	}

	now := c.now().UTC()
	payload["token_type"] = claims.TokenType()
	payload["iat"] = now.Unix()
	if ttl > 0 {
		payload["exp"] = now.Add(ttl).Unix()
	}

	token := jwtgo.NewWithClaims(jwtgo.SigningMethodHS256, payload)
	signed, err := token.SignedString(c.signingKey)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of a token and decodes its claims
// into the matching variant. It never panics; all failure modes come back
// as ErrInvalidToken or ErrExpiredToken.
func (c *Codec) Verify(tokenValue string) (Claims, error) {
	parsed, err := jwtgo.Parse(tokenValue, func(t *jwtgo.Token) (any, error) {
		if _, ok := t.Method.(*jwtgo.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedTokenAlg, t.Header["alg"])
		}
		return c.signingKey, nil
	}, jwtgo.WithTimeFunc(func() time.Time { return c.now() }))
	if err != nil {
		if errors.Is(err, jwtgo.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrExpiredToken, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	mapClaims, ok := parsed.Claims.(jwtgo.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, err := claimsFromJWT(mapClaims)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
