package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// StaffLoginRequest holds operator credentials.
type StaffLoginRequest struct {
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// StaffLoginResponse returns the issued access token.
type StaffLoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
	Username    string    `json:"username"`
}

// JWTClaims represents the JWT payload for staff access tokens.
type JWTClaims struct {
	Username string `json:"username"`
	Method   string `json:"method,omitempty"`
	jwt.RegisteredClaims
}
