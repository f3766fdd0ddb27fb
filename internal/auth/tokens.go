// Package auth issues and verifies bearer tokens and implements account
// registration, login, refresh and logout. Every token is backed by a
// credential in the injected store, so deleting the credential revokes the
// token before it expires.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"masterannonce/internal/models"
	"masterannonce/internal/session"
)

// Token lifetimes used when the configuration leaves them unset.
const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 24 * time.Hour
)

var (
	// ErrInvalidToken covers malformed, expired, wrongly signed, wrong-kind
	// and revoked tokens alike.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// CredentialStore registers, looks up and revokes token ids.
type CredentialStore interface {
	Create(ctx context.Context, data *session.Data, ttl time.Duration) (string, error)
	Get(ctx context.Context, id string) (*session.Data, error)
	Consume(ctx context.Context, id string) (*session.Data, error)
	Destroy(ctx context.Context, id string) error
}

// Claims is the JWT payload. Subject carries the username and ID the
// credential id.
type Claims struct {
	UserID string       `json:"userId"`
	Role   string       `json:"role"`
	Type   session.Kind `json:"type"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID   uuid.UUID
	Username string
	Role     models.Role
	TokenID  string
}

// IsAdmin reports whether the caller holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	TokenType    string      `json:"tokenType"`
	ExpiresIn    int64       `json:"expiresIn"`
	Username     string      `json:"username"`
	Role         models.Role `json:"role"`
}

// Tokens signs HS256 tokens and checks them against the credential store.
type Tokens struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	creds      CredentialStore
	now        func() time.Time
}

// NewTokens creates a token service. Zero TTLs fall back to the defaults.
func NewTokens(secret string, accessTTL, refreshTTL time.Duration, creds CredentialStore) *Tokens {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &Tokens{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		creds:      creds,
		now:        time.Now,
	}
}

// Issue creates an access and a refresh token for u.
func (t *Tokens) Issue(ctx context.Context, u *models.User) (*TokenPair, error) {
	access, err := t.issue(ctx, u, session.KindAccess, t.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := t.issue(ctx, u, session.KindRefresh, t.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(t.accessTTL.Seconds()),
		Username:     u.Username,
		Role:         u.Role,
	}, nil
}

func (t *Tokens) issue(ctx context.Context, u *models.User, kind session.Kind, ttl time.Duration) (string, error) {
	jti, err := t.creds.Create(ctx, &session.Data{
		UserID:   u.ID,
		Username: u.Username,
		Role:     string(u.Role),
		Kind:     kind,
	}, ttl)
	if err != nil {
		return "", fmt.Errorf("register %s credential: %w", kind, err)
	}

	now := t.now()
	claims := Claims{
		UserID: u.ID.String(),
		Role:   string(u.Role),
		Type:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Parse checks the signature, expiry and kind of a token without
// consulting the credential store.
func (t *Tokens) Parse(tokenString string, kind session.Kind) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Type != kind {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrInvalidToken, kind, claims.Type)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing token id", ErrInvalidToken)
	}
	return claims, nil
}

// Verify parses a token and confirms its credential is still live.
func (t *Tokens) Verify(ctx context.Context, tokenString string, kind session.Kind) (*Principal, error) {
	claims, err := t.Parse(tokenString, kind)
	if err != nil {
		return nil, err
	}
	cred, err := t.creds.Get(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	return principal(claims, cred, kind)
}

// Consume verifies a token and revokes its credential in one step, so a
// token redeemed by concurrent callers succeeds for exactly one of them.
func (t *Tokens) Consume(ctx context.Context, tokenString string, kind session.Kind) (*Principal, error) {
	claims, err := t.Parse(tokenString, kind)
	if err != nil {
		return nil, err
	}
	cred, err := t.creds.Consume(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	return principal(claims, cred, kind)
}

func principal(claims *Claims, cred *session.Data, kind session.Kind) (*Principal, error) {
	if cred == nil || cred.Kind != kind {
		return nil, fmt.Errorf("%w: credential revoked", ErrInvalidToken)
	}
	role := models.Role(cred.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, cred.Role)
	}

	return &Principal{
		UserID:   cred.UserID,
		Username: cred.Username,
		Role:     role,
		TokenID:  claims.ID,
	}, nil
}

// Revoke deletes the credential behind a token id.
func (t *Tokens) Revoke(ctx context.Context, tokenID string) error {
	return t.creds.Destroy(ctx, tokenID)
}
