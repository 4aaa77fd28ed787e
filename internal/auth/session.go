package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/desertthunder/songbridge/internal/models"
	"github.com/desertthunder/songbridge/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are embedded in the signed session token.
type SessionClaims struct {
	Providers map[string]models.TokenBundle `json:"providers,omitempty"`
	jwt.RegisteredClaims
}

// SessionCodec turns a [models.SessionState] into an opaque cookie value and back.
//
// The state is signed as an HS256 JWT, then sealed with AES-256-GCM so provider tokens are not readable by the client.
type SessionCodec struct {
	signingKey []byte
	aead       cipher.AEAD
	issuer     string
	ttl        time.Duration
	now        func() time.Time
}

// NewSessionCodec creates a codec from the session secret.
func NewSessionCodec(secret, issuer string, ttl time.Duration) (*SessionCodec, error) {
	if len(secret) < shared.MinSecretLength {
		return nil, fmt.Errorf("%w: session secret must be at least %d bytes", shared.ErrInvalidConfig, shared.MinSecretLength)
	}

	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}

	return &SessionCodec{
		signingKey: []byte(secret),
		aead:       aead,
		issuer:     issuer,
		ttl:        ttl,
		now:        time.Now,
	}, nil
}

// Encode signs and seals s.
func (c *SessionCodec) Encode(s models.SessionState) (string, error) {
	issuedAt := c.now().UTC()
	claims := SessionClaims{
		Providers: make(map[string]models.TokenBundle, len(s.Providers)),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   s.Subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(c.ttl)),
		},
	}
	for p, b := range s.Providers {
		claims.Providers[string(p)] = b
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to read nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(signed), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decode opens and verifies a value produced by [SessionCodec.Encode].
//
// Provider keys outside the supported set are dropped.
func (c *SessionCodec) Decode(value string) (models.SessionState, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return models.SessionState{}, fmt.Errorf("%w: bad encoding", shared.ErrInvalidSession)
	}
	return c.decodeSealed(sealed)
}

func (c *SessionCodec) decodeSealed(sealed []byte) (models.SessionState, error) {
	ns := c.aead.NonceSize()
	if len(sealed) < ns {
		return models.SessionState{}, fmt.Errorf("%w: too short", shared.ErrInvalidSession)
	}

	signed, err := c.aead.Open(nil, sealed[:ns], sealed[ns:], nil)
	if err != nil {
		return models.SessionState{}, fmt.Errorf("%w: %v", shared.ErrInvalidSession, err)
	}

	var claims SessionClaims
	_, err = jwt.ParseWithClaims(string(signed), &claims,
		func(*jwt.Token) (any, error) { return c.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return models.SessionState{}, fmt.Errorf("%w: %v", shared.ErrInvalidSession, err)
	}

	state := models.NewSessionState()
	state.Subject = claims.Subject
	for name, b := range claims.Providers {
		p, err := models.ParseProvider(name)
		if err != nil {
			continue
		}
		state.Providers[p] = b
	}
	return state, nil
}

// TTL returns how long an encoded session stays valid.
func (c *SessionCodec) TTL() time.Duration {
	return c.ttl
}
