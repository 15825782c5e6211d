package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/HammadCopilot/expense-tracker/internal/domain"
	"github.com/HammadCopilot/expense-tracker/internal/port"
	"github.com/HammadCopilot/expense-tracker/internal/validate"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var authTracer = otel.Tracer("service/auth")

const bcryptCost = 12

// defaultCategories is the starter set every new account receives.
var defaultCategories = []domain.Category{
	{Name: "Food & Dining", Icon: "🍔", Color: "#f59e0b"},
	{Name: "Transportation", Icon: "🚗", Color: "#3b82f6"},
	{Name: "Shopping", Icon: "🛍️", Color: "#ec4899"},
	{Name: "Entertainment", Icon: "🎬", Color: "#8b5cf6"},
	{Name: "Bills & Utilities", Icon: "💡", Color: "#10b981"},
	{Name: "Healthcare", Icon: "🏥", Color: "#ef4444"},
}

// AuthService orchestrates signup, login and token management.
type AuthService struct {
	store      port.AuthStore
	categories port.CategoryStore
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(store port.AuthStore, categories port.CategoryStore, jwtSecret string, accessTTL, refreshTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		store:      store,
		categories: categories,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

// ============================================================
// Signup — POST /v1/auth/signup
// ============================================================

func (s *AuthService) Signup(ctx context.Context, req *domain.SignupRequest) (*domain.SignupResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Signup")
	defer span.End()

	if err := validate.Signup(req); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		return nil, &domain.ErrConflict{Message: "an account with this email already exists"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: string(hash),
	}
	created, err := s.store.CreateUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.seedDefaultCategories(ctx, created.ID); err != nil {
		// The account exists; a missing starter set is recoverable and
		// not worth failing the signup over.
		s.logger.Warn("failed to seed default categories",
			zap.String("user_id", created.ID),
			zap.Error(err),
		)
	}

	s.logger.Info("user signed up", zap.String("user_id", created.ID))
	return &domain.SignupResponse{User: created}, nil
}

func (s *AuthService) seedDefaultCategories(ctx context.Context, userID string) error {
	cats := make([]domain.Category, len(defaultCategories))
	for i, c := range defaultCategories {
		c.ID = uuid.NewString()
		c.UserID = userID
		c.IsDefault = true
		cats[i] = c
	}
	return s.categories.CreateCategories(ctx, cats)
}

// ============================================================
// Login — POST /v1/auth/login
// ============================================================

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("login: wrong password", zap.String("user_id", user.ID))
		return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}

	return s.issueTokens(ctx, user)
}

func (s *AuthService) issueTokens(ctx context.Context, user *domain.User) (*domain.LoginResponse, error) {
	accessToken, err := s.signAccessToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, refreshHash, err := s.generateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	if err := s.store.StoreRefreshToken(ctx, user.ID, refreshHash, time.Now().Add(s.refreshTTL)); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &domain.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.accessTTL.Seconds()),
		UserID:       user.ID,
		Name:         user.Name,
	}, nil
}
