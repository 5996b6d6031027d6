package service

import (
	"context"
	"fmt"

	"github.com/finvera/expense-approval/internal/application/port"
	"github.com/finvera/expense-approval/internal/domain/entity"
)

// UserService exposes the company directory operations
type UserService interface {
	Get(ctx context.Context, userID int64) (*entity.User, error)
	ListByCompany(ctx context.Context, viewerID int64) ([]*entity.User, error)
	ListManagers(ctx context.Context, viewerID int64) ([]*entity.User, error)
	ListSubordinates(ctx context.Context, managerID int64) ([]*entity.User, error)
	// SetManager assigns a user's direct manager (admin only)
	SetManager(ctx context.Context, adminID, userID int64, managerID *int64) (*entity.User, error)
	// SetRole changes a user's role (admin only)
	SetRole(ctx context.Context, adminID, userID int64, role entity.RoleType) (*entity.User, error)
}

type userServiceImpl struct {
	userRepo port.UserRepository
	logger   Logger
}

// NewUserService creates a new UserService
func NewUserService(userRepo port.UserRepository, logger Logger) UserService {
	return &userServiceImpl{userRepo: userRepo, logger: logger}
}

func (s *userServiceImpl) Get(ctx context.Context, userID int64) (*entity.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	return user, nil
}

func (s *userServiceImpl) ListByCompany(ctx context.Context, viewerID int64) ([]*entity.User, error) {
	viewer, err := s.Get(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return s.userRepo.ListByCompany(ctx, viewer.CompanyID)
}

func (s *userServiceImpl) ListManagers(ctx context.Context, viewerID int64) ([]*entity.User, error) {
	viewer, err := s.Get(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return s.userRepo.FindActiveByCompanyAndRole(ctx, viewer.CompanyID, entity.RoleManager)
}

func (s *userServiceImpl) ListSubordinates(ctx context.Context, managerID int64) ([]*entity.User, error) {
	return s.userRepo.FindSubordinates(ctx, managerID)
}

// SetManager assigns a user's direct manager
func (s *userServiceImpl) SetManager(ctx context.Context, adminID, userID int64, managerID *int64) (*entity.User, error) {
	user, err := s.requireSameCompanyAdmin(ctx, adminID, userID)
	if err != nil {
		return nil, err
	}

	if managerID != nil {
		manager, err := s.userRepo.GetByID(ctx, *managerID)
		if err != nil {
			return nil, fmt.Errorf("load manager: %w", err)
		}
		if manager == nil || manager.CompanyID != user.CompanyID {
			return nil, fmt.Errorf("%w: manager %d", ErrNotFound, *managerID)
		}
	}

	user.ManagerID = managerID
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("Manager assigned", "user_id", userID, "admin_id", adminID)
	return user, nil
}

// SetRole changes a user's role
func (s *userServiceImpl) SetRole(ctx context.Context, adminID, userID int64, role entity.RoleType) (*entity.User, error) {
	switch role {
	case entity.RoleAdmin, entity.RoleManager, entity.RoleEmployee:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	user, err := s.requireSameCompanyAdmin(ctx, adminID, userID)
	if err != nil {
		return nil, err
	}

	user.Role = role
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("Role changed", "user_id", userID, "role", string(role), "admin_id", adminID)
	return user, nil
}

// requireSameCompanyAdmin loads the target user after verifying the acting
// user is an admin of the same company
func (s *userServiceImpl) requireSameCompanyAdmin(ctx context.Context, adminID, userID int64) (*entity.User, error) {
	admin, err := s.Get(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if !admin.IsAdmin() {
		return nil, fmt.Errorf("%w: user %d is not an administrator", ErrUnauthorized, adminID)
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.CompanyID != admin.CompanyID {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	return user, nil
}
