package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/finvera/expense-approval/internal/application/port"
	"github.com/finvera/expense-approval/internal/domain/entity"
)

// SignupInput carries the first-user registration fields. Signup creates
// the company together with its administrator account.
type SignupInput struct {
	Username        string
	Email           string
	Password        string
	FirstName       string
	LastName        string
	CompanyName     string
	DefaultCurrency string
}

// AuthResult is a successful authentication: the signed token and the user
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      *entity.User
}

// Claims are the JWT claims this service issues and verifies
type Claims struct {
	UserID    int64           `json:"uid"`
	CompanyID int64           `json:"cid"`
	Role      entity.RoleType `json:"role"`
	jwt.RegisteredClaims
}

// AuthService registers and authenticates users and issues JWT tokens
type AuthService interface {
	Signup(ctx context.Context, input SignupInput) (*AuthResult, error)
	Login(ctx context.Context, usernameOrEmail, password string) (*AuthResult, error)
	// VerifyToken parses and validates a signed token
	VerifyToken(tokenString string) (*Claims, error)
}

type authServiceImpl struct {
	userRepo    port.UserRepository
	companyRepo port.CompanyRepository
	txManager   port.TransactionManager
	secret      []byte
	tokenTTL    time.Duration
	logger      Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo port.UserRepository,
	companyRepo port.CompanyRepository,
	txManager port.TransactionManager,
	secret string,
	tokenTTL time.Duration,
	logger Logger,
) AuthService {
	return &authServiceImpl{
		userRepo:    userRepo,
		companyRepo: companyRepo,
		txManager:   txManager,
		secret:      []byte(secret),
		tokenTTL:    tokenTTL,
		logger:      logger,
	}
}

// Signup creates a company and its admin user in one transaction
func (s *authServiceImpl) Signup(ctx context.Context, input SignupInput) (*AuthResult, error) {
	if input.Username == "" || input.Email == "" || input.Password == "" || input.CompanyName == "" {
		return nil, fmt.Errorf("%w: username, email, password and company name are required", ErrInvalidInput)
	}

	if taken, err := s.userRepo.ExistsByUsername(ctx, input.Username); err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	} else if taken {
		return nil, fmt.Errorf("%w: username %q", ErrConflict, input.Username)
	}
	if taken, err := s.userRepo.ExistsByEmail(ctx, input.Email); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	} else if taken {
		return nil, fmt.Errorf("%w: email %q", ErrConflict, input.Email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	currency := input.DefaultCurrency
	if currency == "" {
		currency = "USD"
	}

	company := &entity.Company{
		Name:            input.CompanyName,
		DefaultCurrency: currency,
	}
	user := &entity.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         entity.RoleAdmin,
		IsActive:     true,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.companyRepo.Create(txCtx, company); err != nil {
			return fmt.Errorf("create company: %w", err)
		}
		user.CompanyID = company.ID
		if err := s.userRepo.Create(txCtx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Signup failed", "error", err, "username", input.Username)
		return nil, err
	}

	s.logger.Info("Company registered",
		"company_id", company.ID, "admin_user_id", user.ID)
	return s.issueToken(user)
}

// Login authenticates by username or email and password
func (s *authServiceImpl) Login(ctx context.Context, usernameOrEmail, password string) (*AuthResult, error) {
	user, err := s.userRepo.GetByUsernameOrEmail(ctx, usernameOrEmail)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	return s.issueToken(user)
}

// VerifyToken parses and validates a signed token
func (s *authServiceImpl) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}
	return claims, nil
}

func (s *authServiceImpl) issueToken(user *entity.User) (*AuthResult, error) {
	expiresAt := time.Now().Add(s.tokenTTL)
	claims := &Claims{
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		Role:      user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &AuthResult{Token: signed, ExpiresAt: expiresAt, User: user}, nil
}
