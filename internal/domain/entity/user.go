package entity

import "time"

// User is a member of a company who can file and approve expenses
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         RoleType  `json:"role"`
	IsActive     bool      `json:"is_active"`
	CompanyID    int64     `json:"company_id"`
	ManagerID    *int64    `json:"manager_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FullName returns the user's display name
func (u *User) FullName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Username
	}
	return u.FirstName + " " + u.LastName
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsManager reports whether the user holds the manager role
func (u *User) IsManager() bool {
	return u.Role == RoleManager
}

// Company is the organization that owns users, rules and expenses
type Company struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	DefaultCurrency string    `json:"default_currency"`
	Address         string    `json:"address,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	Email           string    `json:"email,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
