package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/finvera/expense-approval/internal/application/port"
	"github.com/finvera/expense-approval/internal/domain/entity"
)

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{db: db, logger: logger}
}

const userColumns = `
	id, username, email, password_hash, first_name, last_name, role,
	is_active, company_id, manager_id, created_at, updated_at
`

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (
			username, email, password_hash, first_name, last_name, role,
			is_active, company_id, manager_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		string(user.Role),
		user.IsActive,
		user.CompanyID,
		user.ManagerID,
	)
	if err != nil {
		r.logger.Error("Failed to create user", zap.String("username", user.Username), zap.Error(err))
		return fmt.Errorf("create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	user.ID = id
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := scanUser(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// GetByUsernameOrEmail retrieves a user by either login identifier
func (r *UserRepository) GetByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ? OR email = ?`

	user, err := scanUser(getExecutor(ctx, r.db).QueryRowContext(ctx, query, usernameOrEmail, usernameOrEmail))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by login: %w", err)
	}
	return user, nil
}

// ExistsByUsername reports whether a username is already taken
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM users WHERE username = ?`
	if err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, username).Scan(&count); err != nil {
		return false, fmt.Errorf("count users by username: %w", err)
	}
	return count > 0, nil
}

// ExistsByEmail reports whether an email is already registered
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM users WHERE email = ?`
	if err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, email).Scan(&count); err != nil {
		return false, fmt.Errorf("count users by email: %w", err)
	}
	return count > 0, nil
}

// FindActiveByCompanyAndRole returns active role holders ordered by id,
// so the first holder is stable across calls
func (r *UserRepository) FindActiveByCompanyAndRole(ctx context.Context, companyID int64, role entity.RoleType) ([]*entity.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE company_id = ? AND role = ? AND is_active = 1
		ORDER BY id ASC
	`
	return r.queryUsers(ctx, query, companyID, string(role))
}

// FindSubordinates returns users whose manager is the given user
func (r *UserRepository) FindSubordinates(ctx context.Context, managerID int64) ([]*entity.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE manager_id = ?
		ORDER BY id ASC
	`
	return r.queryUsers(ctx, query, managerID)
}

// ListByCompany returns all users of a company
func (r *UserRepository) ListByCompany(ctx context.Context, companyID int64) ([]*entity.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE company_id = ?
		ORDER BY id ASC
	`
	return r.queryUsers(ctx, query, companyID)
}

// Update rewrites the user's mutable fields
func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	query := `
		UPDATE users SET
			email = ?, first_name = ?, last_name = ?, role = ?,
			is_active = ?, manager_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		user.Email,
		user.FirstName,
		user.LastName,
		string(user.Role),
		user.IsActive,
		user.ManagerID,
		user.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update user", zap.Int64("id", user.ID), zap.Error(err))
		return fmt.Errorf("update user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user not found: %d", user.ID)
	}
	return nil
}

func (r *UserRepository) queryUsers(ctx context.Context, query string, args ...interface{}) ([]*entity.User, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query users", zap.Error(err))
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func scanUser(row rowScanner) (*entity.User, error) {
	var (
		user      entity.User
		role      string
		managerID sql.NullInt64
	)
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&role,
		&user.IsActive,
		&user.CompanyID,
		&managerID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Role = entity.RoleType(role)
	if managerID.Valid {
		user.ManagerID = &managerID.Int64
	}
	return &user, nil
}

// Verify interface compliance
var _ port.UserRepository = (*UserRepository)(nil)
