package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/405153-Masera/deviaje-users-and-auth/internal/domain"
)

const issuer = "deviaje-users-and-auth"

// Token parsing failures.
var (
	ErrMalformedToken = errors.New("malformed token")
	ErrBadSignature   = errors.New("invalid token signature")
)

// Codec produces and verifies signed, self-contained bearer tokens. The
// signing secret is process-wide configuration and never travels inside a
// token. Signature and expiry are the only source of truth for access-token
// validity; there is no revocation before natural expiry.
type Codec struct {
	secret []byte
	parser *jwt.Parser
}

// NewCodec creates a codec signing with HMAC-SHA256 over the given secret.
func NewCodec(secret string) *Codec {
	return &Codec{
		secret: []byte(secret),
		// Expiry is checked separately so the subject can still be read from
		// a well-signed but expired token.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
}

// Mint creates a signed token for the subject with issued-at = now and
// expiry = now + ttl. Extra claims are merged in without overriding the
// registered sub/iat/exp/iss claims.
func (c *Codec) Mint(subject string, extraClaims map[string]any, ttl time.Duration) (string, error) {
	now := time.Now().UTC()

	claims := jwt.MapClaims{}
	for k, v := range extraClaims {
		claims[k] = v
	}
	claims["sub"] = subject
	claims["iat"] = jwt.NewNumericDate(now)
	claims["exp"] = jwt.NewNumericDate(now.Add(ttl))
	claims["iss"] = issuer

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Parse verifies the signature and structure of a token and returns its
// claims. Expiry is NOT checked here; use IsExpired or ValidForPrincipal.
func (c *Codec) Parse(tokenString string) (jwt.MapClaims, error) {
	token, err := c.parser.ParseWithClaims(tokenString, jwt.MapClaims{}, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, fmt.Errorf("%w: %w", ErrBadSignature, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrMalformedToken
	}

	return claims, nil
}

// ExtractSubject returns the subject claim of a verified token. It fails the
// same way Parse does on unparsable or badly-signed tokens.
func (c *Codec) ExtractSubject(tokenString string) (string, error) {
	claims, err := c.Parse(tokenString)
	if err != nil {
		return "", err
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrMalformedToken)
	}

	return subject, nil
}

// IsExpired reports whether the token's expiry instant has passed. A token is
// valid iff now < expiry (strict).
func (c *Codec) IsExpired(tokenString string) (bool, error) {
	claims, err := c.Parse(tokenString)
	if err != nil {
		return false, err
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false, fmt.Errorf("%w: missing expiry", ErrMalformedToken)
	}

	return !time.Now().Before(exp.Time), nil
}

// ValidForPrincipal reports whether the token identifies the given principal:
// the subject must match the principal's username and the token must not be
// expired. Parse failures count as invalid.
func (c *Codec) ValidForPrincipal(tokenString string, principal *domain.Principal) bool {
	subject, err := c.ExtractSubject(tokenString)
	if err != nil {
		return false
	}

	expired, err := c.IsExpired(tokenString)
	if err != nil {
		return false
	}

	return subject == principal.Username && !expired
}
