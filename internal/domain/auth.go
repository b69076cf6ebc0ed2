package domain

import "time"

// RoleAdmin is the only role that can sign in.
const RoleAdmin = "admin"

// LoginRequest is the admin login body.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued admin token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// JWTClaims are the claims carried by an admin token.
type JWTClaims struct {
	Email string
	Role  string
}
