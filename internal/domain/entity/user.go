package entity

import "time"

// User representa un usuario del sistema (cliente o administrador).
// PasswordHash se genera con bcrypt en el caso de uso de auth; nunca se expone.
type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	IsActive     bool
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Roles usados en el claim del JWT y en el middleware RBAC.
const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// Role deriva el rol a partir del flag IsAdmin.
func (u *User) Role() string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleCustomer
}
