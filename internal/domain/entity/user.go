package entity

import "time"

// Roles válidos para User.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleQC       = "qc"
)

// Estados de usuario.
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User representa un usuario de planta (operador, inspector QC o administrador).
type User struct {
	ID           string
	Username     string
	PasswordHash string // bcrypt hash
	Name         string
	Role         string // admin, operator, qc
	Status       string // active, inactive
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
