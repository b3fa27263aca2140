package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"stockledger/internal/models"
	"stockledger/internal/repositories"
	"stockledger/pkg/utils"

	"golang.org/x/crypto/bcrypt"
)

// minPasswordLength applies to accounts created by an administrator.
const minPasswordLength = 8

// --- Data Transfer Objects (DTOs) ---

// LoginRequest DTO
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateUserRequest DTO, used by administrators.
type CreateUserRequest struct {
	Username    string  `json:"username" binding:"required"`
	Password    string  `json:"password" binding:"required"`
	FullName    *string `json:"full_name"`
	Role        string  `json:"role"`
	WarehouseID *int64  `json:"warehouse_id"`
}

// AuthResponse DTO
type AuthResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// --- AuthService Interface ---
type AuthService interface {
	LoginUser(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error)
	GetUserProfile(ctx context.Context, userID int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	// ResolveAccess builds the caller's scope from the current user row, not
	// from token claims.
	ResolveAccess(ctx context.Context, userID int64) (models.AccessContext, error)
}

// --- authService Implementation ---
type authService struct {
	db            *sql.DB
	authRepo      repositories.AuthRepository
	warehouseRepo repositories.WarehouseRepository
	issuer        *utils.TokenIssuer
	timeout       time.Duration
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(db *sql.DB, authRepo repositories.AuthRepository, wr repositories.WarehouseRepository, issuer *utils.TokenIssuer, timeout time.Duration) AuthService {
	return &authService{db: db, authRepo: authRepo, warehouseRepo: wr, issuer: issuer, timeout: timeout}
}

// LoginUser checks the password and issues an access token carrying the
// user's role and warehouse binding.
func (s *authService) LoginUser(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	user, storedHashedPassword, err := s.authRepo.FindUserByUsername(ctx, s.db, strings.TrimSpace(req.Username))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, storageErr("login", "", err)
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(storedHashedPassword), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.issuer.GenerateAccessToken(user.ID, user.Username, user.Role, user.WarehouseID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	return &AuthResponse{User: user, AccessToken: token, ExpiresAt: expiresAt}, nil
}

func (s *authService) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	}
	if !utils.IsValidPasswordLength(req.Password, minPasswordLength) {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = models.RoleUser
	}
	switch role {
	case models.RoleAdmin, models.RoleSupport, models.RoleUser:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, req.Role)
	}

	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if req.WarehouseID != nil {
		if _, err := s.warehouseRepo.GetByID(ctx, s.db, *req.WarehouseID); err != nil {
			if isNotFound(err) {
				return nil, ErrWarehouseNotFound
			}
			return nil, storageErr("create user", "load warehouse", err)
		}
	}

	user := &models.User{
		Username:    username,
		FullName:    utils.TrimPtr(req.FullName),
		Role:        role,
		WarehouseID: req.WarehouseID,
		IsActive:    true,
	}
	if err := s.authRepo.CreateUser(ctx, s.db, user, string(hashedPasswordBytes)); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrUsernameExists
		}
		return nil, storageErr("create user", "", err)
	}
	utils.LogInfo("User created", map[string]interface{}{"user_id": user.ID, "username": user.Username, "role": user.Role})
	return user, nil
}

// GetUserProfile retrieves a user's profile by their ID.
func (s *authService) GetUserProfile(ctx context.Context, userID int64) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.authRepo.FindUserByID(ctx, s.db, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, storageErr("get user", "", err)
	}
	return user, nil
}

func (s *authService) ListUsers(ctx context.Context) ([]models.User, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	users, err := s.authRepo.ListUsers(ctx, s.db)
	if err != nil {
		return nil, storageErr("list users", "", err)
	}
	return users, nil
}

func (s *authService) ResolveAccess(ctx context.Context, userID int64) (models.AccessContext, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.authRepo.FindUserByID(ctx, s.db, userID)
	if err != nil {
		if isNotFound(err) {
			return models.AccessContext{}, ErrUserNotFound
		}
		return models.AccessContext{}, storageErr("resolve access", "load user", err)
	}
	if !user.IsActive {
		return models.AccessContext{}, ErrUserInactive
	}
	return models.AccessContext{
		UserID:      user.ID,
		Username:    user.Username,
		Role:        user.Role,
		WarehouseID: user.WarehouseID,
	}, nil
}
