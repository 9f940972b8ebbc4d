package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/konsulo/konsulo-backend/internal/apierr"
	"github.com/konsulo/konsulo-backend/internal/logger"
	"github.com/konsulo/konsulo-backend/internal/repos"
	"github.com/konsulo/konsulo-backend/internal/types"
)

// AdminAuthService manages the operator-console credential path: local
// password accounts plus short-lived HS256 session tokens. It is signed
// with a secret distinct from anything on the user-facing path, and tokens
// have a fixed expiry with no refresh.
type AdminAuthService interface {
	Signup(ctx context.Context, email, password, displayName string) (*types.Admin, error)
	Login(ctx context.Context, email, password string) (string, time.Time, error)
	ParseSessionToken(ctx context.Context, tokenString string) (*types.Admin, error)
	SessionTTL() time.Duration
}

type adminClaims struct {
	jwt.RegisteredClaims
}

type adminAuthService struct {
	db         *gorm.DB
	log        *logger.Logger
	adminRepo  repos.AdminRepo
	secretKey  string
	sessionTTL time.Duration
}

func NewAdminAuthService(db *gorm.DB, log *logger.Logger, adminRepo repos.AdminRepo, secretKey string, sessionTTL time.Duration) AdminAuthService {
	return &adminAuthService{
		db:         db,
		log:        log.With("service", "AdminAuthService"),
		adminRepo:  adminRepo,
		secretKey:  secretKey,
		sessionTTL: sessionTTL,
	}
}

func (as *adminAuthService) Signup(ctx context.Context, email, password, displayName string) (*types.Admin, error) {
	email = normalizeEmail(email)
	if email == "" || len(password) < 8 {
		return nil, apierr.BadRequest(errors.New("email and a password of at least 8 characters are required"))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apierr.Storage(fmt.Errorf("hash password: %w", err))
	}
	admin := &types.Admin{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
	}
	if err := as.adminRepo.Create(ctx, nil, admin); err != nil {
		if errors.Is(err, repos.ErrDuplicate) {
			return nil, apierr.Conflict("", fmt.Errorf("admin %s already exists", email))
		}
		return nil, apierr.Storage(err)
	}
	as.log.Info("Admin account created", "email", email)
	return admin, nil
}

func (as *adminAuthService) Login(ctx context.Context, email, password string) (string, time.Time, error) {
	email = normalizeEmail(email)
	admin, err := as.adminRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		return "", time.Time{}, apierr.Storage(err)
	}
	if admin == nil {
		as.log.Warn("Admin login for unknown email", "email", email)
		return "", time.Time{}, apierr.Unauthorized(errors.New("invalid email or password"))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		as.log.Warn("Admin login with wrong password", "email", email)
		return "", time.Time{}, apierr.Unauthorized(errors.New("invalid email or password"))
	}

	expiresAt := time.Now().Add(as.sessionTTL)
	claims := adminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   admin.ID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(as.secretKey))
	if err != nil {
		return "", time.Time{}, apierr.Storage(fmt.Errorf("sign session token: %w", err))
	}
	as.log.Info("Admin session issued", "email", email)
	return signed, expiresAt, nil
}

func (as *adminAuthService) ParseSessionToken(ctx context.Context, tokenString string) (*types.Admin, error) {
	if tokenString == "" {
		return nil, apierr.Unauthorized(errors.New("missing admin session token"))
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	parsed, err := parser.ParseWithClaims(tokenString, &adminClaims{}, func(token *jwt.Token) (any, error) {
		return []byte(as.secretKey), nil
	})
	if err != nil {
		return nil, apierr.Unauthorized(fmt.Errorf("invalid admin session token: %w", err))
	}
	claims, ok := parsed.Claims.(*adminClaims)
	if !ok || !parsed.Valid {
		return nil, apierr.Unauthorized(errors.New("invalid admin session token"))
	}
	adminID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apierr.Unauthorized(fmt.Errorf("invalid admin id in session token: %w", err))
	}
	admin, err := as.adminRepo.GetByID(ctx, nil, adminID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if admin == nil {
		return nil, apierr.Unauthorized(errors.New("admin no longer exists"))
	}
	return admin, nil
}

func (as *adminAuthService) SessionTTL() time.Duration {
	return as.sessionTTL
}
