// Package identity holds the boundary to the external identity collaborators: token verification
// and the user directory.
package identity

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"channel-service/internal/config"
	"channel-service/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

// Verifier resolves a bearer token to the caller's identity. The gRPC AuthClient satisfies it.
type Verifier interface {
	ValidateToken(ctx context.Context, token string) (models.Principal, error)
}

// Claims carried by tokens issued for this service. The subject is the user id.
type Claims struct {
	TenantID int64  `json:"tenant_id"`
	Name     string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier checks locally signed tokens with an RSA public key or an HMAC secret.
type JWTVerifier struct {
	pub    *rsa.PublicKey
	secret []byte
}

func NewJWTVerifier(cfg config.AuthConfig) (*JWTVerifier, error) {
	if cfg.JWTPublicKeyPath != "" {
		b, err := os.ReadFile(cfg.JWTPublicKeyPath)
		if err != nil {
			return nil, err
		}
		pub, err := jwt.ParseRSAPublicKeyFromPEM(b)
		if err != nil {
			return nil, err
		}
		return &JWTVerifier{pub: pub}, nil
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret or auth.jwt_public_key_path is required in jwt mode")
	}
	return &JWTVerifier{secret: []byte(cfg.JWTSecret)}, nil
}

func (v *JWTVerifier) keyFunc(t *jwt.Token) (interface{}, error) {
	if v.pub != nil {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.pub, nil
	}
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.New("unexpected signing method")
	}
	return v.secret, nil
}

func (v *JWTVerifier) ValidateToken(_ context.Context, token string) (models.Principal, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, v.keyFunc)
	if err != nil || !parsed.Valid {
		return models.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 || claims.TenantID <= 0 {
		return models.Principal{}, fmt.Errorf("%w: missing subject or tenant", ErrInvalidToken)
	}
	return models.Principal{UserID: userID, TenantID: claims.TenantID, DisplayName: claims.Name}, nil
}
