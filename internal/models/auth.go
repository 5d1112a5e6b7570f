package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminRole is the only role the dashboard knows about.
const AdminRole = "admin"

// LoginRequest holds credentials for authenticating the admin user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued session token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresIn int64     `json:"expires_in"`
	IssuedAt  time.Time `json:"issued_at"`
	User      UserInfo  `json:"user"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// SessionClaims is the JWT payload carried by an authenticated request.
type SessionClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}
