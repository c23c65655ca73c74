package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sulafhq/sulaf-backend/internal/logger"
	"github.com/sulafhq/sulaf-backend/internal/repos"
	"github.com/sulafhq/sulaf-backend/internal/types"
	"github.com/sulafhq/sulaf-backend/internal/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserExists         = errors.New("a user with this email or username already exists")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

type RegisterInput struct {
	Username string `json:"username" binding:"required,min=3"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"fullName"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*types.User, string, error)
	Login(ctx context.Context, input LoginInput) (*types.User, string, error)
	Authenticate(ctx context.Context, tokenString string) (*types.User, error)
}

type authService struct {
	log      *logger.Logger
	userRepo repos.UserRepo
	secret   []byte
	tokenTTL time.Duration
}

func NewAuthService(baseLog *logger.Logger, userRepo repos.UserRepo) AuthService {
	log := baseLog.With("service", "AuthService")
	secret := utils.GetEnv("JWT_SECRET", "", log)
	if secret == "" {
		log.Warn("JWT_SECRET is not set; using an insecure development default")
		secret = "dev-secret-change-me"
	}
	ttlHours := utils.GetEnvAsInt("JWT_TTL_HOURS", 24*7, log)
	return &authService{
		log:      log,
		userRepo: userRepo,
		secret:   []byte(secret),
		tokenTTL: time.Duration(ttlHours) * time.Hour,
	}
}

func (as *authService) Register(ctx context.Context, input RegisterInput) (*types.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	username := strings.TrimSpace(input.Username)

	exists, err := as.userRepo.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, "", fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		return nil, "", ErrUserExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &types.User{
		Username:  username,
		Email:     email,
		Password:  string(hashed),
		FullName:  strings.TrimSpace(input.FullName),
		AvatarURL: defaultAvatarURL(username),
		Role:      "user",
		IsActive:  true,
	}
	if err := as.userRepo.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := as.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	as.log.Info("Registered user", "userId", user.ID, "username", username)
	return user, token, nil
}

func (as *authService) Login(ctx context.Context, input LoginInput) (*types.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	user, err := as.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("look up user: %w", err)
	}
	if user == nil {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := as.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (as *authService) Authenticate(ctx context.Context, tokenString string) (*types.User, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return as.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	rawID, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := as.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, ErrInvalidToken
	}
	return user, nil
}

func (as *authService) issueToken(user *types.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"role":    user.Role,
		"iat":     now.Unix(),
		"exp":     now.Add(as.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(as.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func defaultAvatarURL(username string) string {
	return "https://ui-avatars.com/api/?background=2c3e50&color=fff&size=256&name=" + url.QueryEscape(username)
}
