package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/vpoguide/backend/internal/domain"
)

const tokenTTL = 12 * time.Hour

// AuthService signs in the single configured admin and verifies its tokens.
type AuthService struct {
	jwtSecret    string
	adminEmail   string
	passwordHash []byte
	now          func() time.Time
}

// NewAuthService hashes the configured admin password. With any of the three
// values empty the service is unconfigured and Login fails with a 500.
func NewAuthService(jwtSecret, adminEmail, adminPassword string) (*AuthService, error) {
	s := &AuthService{
		jwtSecret:  jwtSecret,
		adminEmail: strings.ToLower(strings.TrimSpace(adminEmail)),
		now:        time.Now,
	}
	if jwtSecret == "" || s.adminEmail == "" || adminPassword == "" {
		return s, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}
	s.passwordHash = hash
	return s, nil
}

// Configured reports whether tokens can be issued.
func (s *AuthService) Configured() bool {
	return len(s.passwordHash) > 0
}

// Login validates the admin credentials and returns a JWT token.
func (s *AuthService) Login(_ context.Context, email, password string) (*domain.LoginResponse, error) {
	if !s.Configured() {
		return nil, domain.ErrConfiguration("admin login")
	}

	email = strings.ToLower(strings.TrimSpace(email))
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.adminEmail)) == 1
	// Compare the hash even on a wrong email so both paths take similar time.
	pwErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if !emailOK || pwErr != nil {
		return nil, domain.ErrUnauthorized("invalid credentials")
	}

	now := s.now()
	exp := now.Add(tokenTTL)
	claims := jwt.MapClaims{
		"sub":   s.adminEmail,
		"email": s.adminEmail,
		"role":  domain.RoleAdmin,
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, domain.ErrInternal("failed to sign token", err)
	}

	return &domain.LoginResponse{Token: signed, ExpiresAt: exp.UTC()}, nil
}

// VerifyToken validates a JWT token and returns the claims.
func (s *AuthService) VerifyToken(tokenStr string) (*domain.JWTClaims, error) {
	if s.jwtSecret == "" {
		return nil, domain.ErrConfiguration("admin login")
	}
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, domain.ErrUnauthorized("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrUnauthorized("invalid token claims")
	}

	return &domain.JWTClaims{
		Email: getClaimString(claims, "email"),
		Role:  getClaimString(claims, "role"),
	}, nil
}

func getClaimString(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
