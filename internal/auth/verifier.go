package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"samba-tours/internal/apperr"
	"samba-tours/internal/models"
)

// Verifier turns a bearer token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*Identity, error)
}

func allowedRole(role string) bool {
	return role == models.RoleAdmin || role == models.RoleEditor
}

// Claims is the payload of tokens this service issues itself.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// HMACVerifier issues and checks HS256 tokens signed with a shared secret.
type HMACVerifier struct {
	secret  []byte
	ttl     time.Duration
	revoked RevocationStore
}

func NewHMACVerifier(secret string, ttl time.Duration, revoked RevocationStore) (*HMACVerifier, error) {
	if len(secret) < 16 {
		return nil, errors.New("JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &HMACVerifier{secret: []byte(secret), ttl: ttl, revoked: revoked}, nil
}

// Issue signs a token for profile p.
func (v *HMACVerifier) Issue(p *models.Profile) (string, time.Time, error) {
	now := time.Now().UTC()
	expires := now.Add(v.ttl)
	claims := Claims{
		Email: p.Email,
		Role:  p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

func (v *HMACVerifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(rawToken, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("invalid token: %v: %w", err, apperr.ErrUnauthorized)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject: %w", apperr.ErrUnauthorized)
	}
	if !allowedRole(claims.Role) {
		return nil, fmt.Errorf("role %q may not use the admin API: %w", claims.Role, apperr.ErrForbidden)
	}
	if v.revoked != nil && claims.ID != "" {
		revoked, err := v.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, fmt.Errorf("token has been revoked: %w", apperr.ErrUnauthorized)
		}
	}

	id := &Identity{UserID: claims.Subject, Email: claims.Email, Role: claims.Role, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		id.Expires = claims.ExpiresAt.Unix()
	}
	return id, nil
}

// OIDCVerifier accepts ID tokens from an external identity provider. The role
// comes from a "role" claim or from Keycloak-style realm roles.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func NewOIDCVerifier(ctx context.Context, issuer string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("create OIDC provider: %w", err)
	}
	return &OIDCVerifier{verifier: provider.Verifier(&oidc.Config{SkipClientIDCheck: true})}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	token, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %v: %w", err, apperr.ErrUnauthorized)
	}

	var claims struct {
		Sub         string `json:"sub"`
		Email       string `json:"email"`
		Role        string `json:"role"`
		RealmAccess struct {
			Roles []string `json:"roles"`
		} `json:"realm_access"`
	}
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %v: %w", err, apperr.ErrUnauthorized)
	}

	role := claims.Role
	if !allowedRole(role) {
		role = ""
		for _, r := range claims.RealmAccess.Roles {
			if allowedRole(r) {
				role = r
				break
			}
		}
	}
	if role == "" {
		return nil, fmt.Errorf("no admin or editor role in token: %w", apperr.ErrForbidden)
	}
	return &Identity{UserID: claims.Sub, Email: claims.Email, Role: role, Expires: token.Expiry.Unix()}, nil
}
