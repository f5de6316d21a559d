package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

var (
	signingMethod = jwt.SigningMethodHS256

	ErrSecretMissing = errors.New("jwt secret is required")
)

// Verifier checks access tokens against one secret and issuer. It is safe
// for concurrent use.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier builds the token parser once; Leeway absorbs clock skew
// between the identity service and this one.
func NewVerifier(cfg config.JWTConfig) *Verifier {
	return &Verifier{
		secret: []byte(cfg.Secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{signingMethod.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(cfg.Leeway),
		),
	}
}

// Verify parses tokenString and returns its claims once the signature,
// registered claims and actor fields all check out.
func (v *Verifier) Verify(tokenString string) (*ActorClaims, error) {
	if len(v.secret) == 0 {
		return nil, ErrSecretMissing
	}
	claims := &ActorClaims{}
	if _, err := v.parser.ParseWithClaims(tokenString, claims, v.key); err != nil {
		return nil, err
	}
	return claims, nil
}

func (v *Verifier) key(*jwt.Token) (any, error) {
	return v.secret, nil
}

// MintAccessToken signs payload with the configured secret and TTL. The API
// only verifies tokens; minting backs tests and local tooling.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload ActorPayload) (string, error) {
	switch {
	case cfg.Secret == "":
		return "", ErrSecretMissing
	case cfg.Issuer == "":
		return "", errors.New("jwt issuer is required")
	case cfg.ExpirationMinutes <= 0:
		return "", errors.New("jwt expiration minutes must be positive")
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	claims := ActorClaims{
		UserID:  payload.UserID,
		Kind:    payload.Kind,
		StoreID: payload.StoreID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)),
			ID:        jti,
		},
	}
	if err := claims.Validate(); err != nil {
		return "", err
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// Validate runs after the registered claims pass, as part of parsing.
func (c ActorClaims) Validate() error {
	if !c.Kind.IsValid() || c.Kind == enums.ActorSystem {
		return fmt.Errorf("invalid actor kind %q", c.Kind)
	}
	if c.UserID == uuid.Nil {
		return errors.New("user id is required")
	}
	if c.Subject != "" && c.Subject != c.UserID.String() {
		return errors.New("subject does not match user id")
	}
	if c.Kind == enums.ActorVendor && (c.StoreID == nil || *c.StoreID == uuid.Nil) {
		return errors.New("vendor tokens must carry a store id")
	}
	return nil
}
