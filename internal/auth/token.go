package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenService signs and verifies the bearer tokens. It exclusively
// owns the shared secret; no other component inspects a signature.
// Access tokens are short-lived and carry the role claims; refresh
// tokens are long-lived and carry a per-issuance nonce so two tokens
// for the same user issued at the same instant are never bit-identical.
type TokenService struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time // overridable for tests; defaults to time.Now
}

func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{Secret: secret, AccessTTL: accessTTL, RefreshTTL: refreshTTL, Now: time.Now}
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// IssueAccessToken builds and signs an HS256 JWT carrying the
// username as subject and the flat list of role names.
func (s *TokenService) IssueAccessToken(username string, roles []string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   username,
		"roles": roles,
		"iat":   now.Unix(),
		"exp":   now.Add(s.AccessTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.Secret))
}

// IssueRefreshToken builds and signs an HS256 JWT carrying the
// username and a random uuid nonce.
func (s *TokenService) IssueRefreshToken(username string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":  username,
		"uuid": uuid.NewString(),
		"iat":  now.Unix(),
		"exp":  now.Add(s.RefreshTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.Secret))
}

// Validate checks signature and expiry. Expiry-only failures are
// distinguished as ErrExpiredToken; everything else is ErrInvalidToken.
func (s *TokenService) Validate(token string) error {
	_, err := s.parse(token)
	return err
}

// Username extracts the subject claim after full validation.
func (s *TokenService) Username(token string) (string, error) {
	claims, err := s.parse(token)
	if err != nil {
		return "", err
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

// Roles extracts the roles claim from an access token.
func (s *TokenService) Roles(token string) ([]string, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	raw, ok := claims["roles"].([]any)
	if !ok {
		return nil, nil
	}
	roles := make([]string, 0, len(raw))
	for _, v := range raw {
		if r, ok := v.(string); ok {
			roles = append(roles, r)
		}
	}
	return roles, nil
}

func (s *TokenService) parse(token string) (jwt.MapClaims, error) {
	tok, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.Secret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
