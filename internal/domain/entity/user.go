package entity

import "time"

// Roles válidos para User.
const (
	RoleShopOwner  = "shop_owner"
	RoleEmployee   = "employee"
	RoleSuperAdmin = "super_admin"
)

// UserCodePrefixes prefijo del código legible de usuario según el rol.
var UserCodePrefixes = map[string]string{
	RoleShopOwner:  "SISO",
	RoleEmployee:   "SIE",
	RoleSuperAdmin: "SISA",
}

// User usuario del sistema. UserCode es el identificador legible (ej. SIE007).
type User struct {
	ID           string
	UserCode     string
	StoreID      string
	Email        string
	PasswordHash string // bcrypt, nunca plano
	FirstName    string
	LastName     string
	Role         string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
