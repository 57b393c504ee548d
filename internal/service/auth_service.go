package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/childcare-reservation-api/internal/models"
	appErrors "github.com/noah-isme/childcare-reservation-api/pkg/errors"
)

const (
	authMethodToken = "token"
	authMethodBasic = "basic"
)

type loginAuditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuthConfig defines configuration for the staff account and its tokens.
type AuthConfig struct {
	Username          string
	PasswordHash      string
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
}

// AuthService authenticates the facility operator guarding the admin API.
type AuthService struct {
	audit     loginAuditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(audit loginAuditRecorder, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 12 * time.Hour
	}
	return &AuthService{audit: audit, validator: validate, logger: logger, config: config, now: time.Now}
}

// Configured reports whether a staff account has been provisioned.
func (s *AuthService) Configured() bool {
	return s.config.Username != "" && s.config.PasswordHash != ""
}

// Login verifies the staff credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, req models.StaffLoginRequest) (*models.StaffLoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}
	if err := s.verify(req.Username, req.Password); err != nil {
		s.recordLogin(ctx, req, false)
		return nil, err
	}

	issuedAt := s.now().UTC()
	token, err := s.generateAccessToken(req.Username, authMethodToken, issuedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	s.recordLogin(ctx, req, true)

	return &models.StaffLoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:    issuedAt,
		Username:    req.Username,
	}, nil
}

// Authenticate checks HTTP Basic credentials and returns equivalent claims.
func (s *AuthService) Authenticate(username, password string) (*models.JWTClaims, error) {
	if err := s.verify(username, password); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	return &models.JWTClaims{
		Username: username,
		Method:   authMethodBasic,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  username,
			Issuer:   s.config.Issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}, nil
}

// ValidateToken parses and validates a staff access token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	if !s.Configured() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "staff account is not configured")
	}
	claims := &models.JWTClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token expired")
		}
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	if !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	if s.config.Issuer != "" && claims.Issuer != s.config.Issuer {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token issuer")
	}
	if claims.Username == "" || subtle.ConstantTimeCompare([]byte(claims.Username), []byte(s.config.Username)) != 1 {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unknown staff account")
	}
	return claims, nil
}

func (s *AuthService) verify(username, password string) error {
	if !s.Configured() {
		return appErrors.Clone(appErrors.ErrForbidden, "staff account is not configured")
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.config.Username)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(s.config.PasswordHash), []byte(password))
	if !userOK || passErr != nil {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}
	return nil
}

func (s *AuthService) generateAccessToken(username, method string, issuedAt time.Time) (string, error) {
	claims := models.JWTClaims{
		Username: username,
		Method:   method,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *AuthService) recordLogin(ctx context.Context, req models.StaffLoginRequest, success bool) {
	if s.audit == nil {
		return
	}
	result := []byte(`{"status":"failure"}`)
	if success {
		result = []byte(`{"status":"success"}`)
	}
	username := req.Username
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		Actor:     &username,
		Action:    models.AuditActionLogin,
		Resource:  "auth",
		NewValues: result,
		IPAddress: req.IP,
		UserAgent: req.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record login audit log", zap.Error(err))
	}
}
