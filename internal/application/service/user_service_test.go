package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finvera/expense-approval/internal/domain/entity"
)

func newUserService(users ...*entity.User) (UserService, map[int64]*entity.User) {
	byID := make(map[int64]*entity.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	repo := &mockUserRepo{
		GetByIDFn: func(ctx context.Context, id int64) (*entity.User, error) {
			return byID[id], nil
		},
		UpdateFn: func(ctx context.Context, user *entity.User) error {
			byID[user.ID] = user
			return nil
		},
	}
	return NewUserService(repo, testLogger{}), byID
}

func TestSetManager(t *testing.T) {
	svc, users := newUserService(
		&entity.User{ID: 1, Role: entity.RoleAdmin, CompanyID: 1, IsActive: true},
		&entity.User{ID: 3, Role: entity.RoleManager, CompanyID: 1, IsActive: true},
		&entity.User{ID: 7, Role: entity.RoleEmployee, CompanyID: 1, IsActive: true},
	)

	updated, err := svc.SetManager(context.Background(), 1, 7, int64p(3))
	require.NoError(t, err)
	require.NotNil(t, updated.ManagerID)
	assert.Equal(t, int64(3), *updated.ManagerID)

	// Clearing the manager
	updated, err = svc.SetManager(context.Background(), 1, 7, nil)
	require.NoError(t, err)
	assert.Nil(t, updated.ManagerID)
	assert.Nil(t, users[7].ManagerID)
}

func TestSetManagerRejectsCrossCompany(t *testing.T) {
	svc, _ := newUserService(
		&entity.User{ID: 1, Role: entity.RoleAdmin, CompanyID: 1, IsActive: true},
		&entity.User{ID: 7, Role: entity.RoleEmployee, CompanyID: 1, IsActive: true},
		&entity.User{ID: 20, Role: entity.RoleManager, CompanyID: 2, IsActive: true},
	)

	_, err := svc.SetManager(context.Background(), 1, 7, int64p(20))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetManagerRequiresAdmin(t *testing.T) {
	svc, _ := newUserService(
		&entity.User{ID: 3, Role: entity.RoleManager, CompanyID: 1, IsActive: true},
		&entity.User{ID: 7, Role: entity.RoleEmployee, CompanyID: 1, IsActive: true},
	)

	_, err := svc.SetManager(context.Background(), 3, 7, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSetRole(t *testing.T) {
	svc, users := newUserService(
		&entity.User{ID: 1, Role: entity.RoleAdmin, CompanyID: 1, IsActive: true},
		&entity.User{ID: 7, Role: entity.RoleEmployee, CompanyID: 1, IsActive: true},
	)

	updated, err := svc.SetRole(context.Background(), 1, 7, entity.RoleManager)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleManager, updated.Role)
	assert.Equal(t, entity.RoleManager, users[7].Role)

	_, err = svc.SetRole(context.Background(), 1, 7, entity.RoleType("INTERN"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}
