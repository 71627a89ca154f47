package session

import (
	"github.com/google/uuid"
)

// Role is the portal user's role
type Role string

const (
	// RoleAdministrator manages users and reports
	RoleAdministrator Role = "ADMINISTRADOR"
	// RoleEmployee is a courier handling packages
	RoleEmployee Role = "EMPLEADO"
	// RoleClient tracks their own packages
	RoleClient Role = "CLIENTE"
)

// User is the session user record. Field tags follow the backend wire
// contract, which is also the shape persisted to durable storage.
type User struct {
	ID           int64     `json:"id,omitempty"`
	Email        string    `json:"email,omitempty"`
	FirstName    string    `json:"nombre,omitempty"`
	PaternalName string    `json:"apellidoPaterno,omitempty"`
	MaternalName string    `json:"apellidoMaterno,omitempty"`
	Role         Role      `json:"rol,omitempty"`
	Requires2FA  bool      `json:"requiere2FA,omitempty"`
	Location     string    `json:"ubicacion,omitempty"`
	// MockID identifies degraded-mode sessions that never reached the
	// backend and therefore have no real user id.
	MockID uuid.UUID `json:"mockId,omitempty"`
}

// Credentials is the login payload submitted to POST /auth/login.
type Credentials struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	TwoFACode string `json:"codigo2FA,omitempty"`
}

// PendingLogin is the record held while a 2FA challenge is outstanding: the
// original credentials plus the user id the backend reported.
type PendingLogin struct {
	Credentials
	UserID int64 `json:"userId"`
}

// LoginResult is the data payload of a login response. A non-empty Token
// means the attempt fully authenticated; Requires2FA without a token means
// the backend issued a 2FA challenge.
type LoginResult struct {
	Token        string `json:"token,omitempty"`
	TokenType    string `json:"tipoToken,omitempty"`
	ID           int64  `json:"id"`
	Email        string `json:"email,omitempty"`
	FirstName    string `json:"nombre,omitempty"`
	PaternalName string `json:"apellidoPaterno,omitempty"`
	MaternalName string `json:"apellidoMaterno,omitempty"`
	Role         Role   `json:"rol,omitempty"`
	Requires2FA  bool   `json:"requiere2FA,omitempty"`
}

// Authenticated reports whether the result carries a bearer token.
func (r *LoginResult) Authenticated() bool {
	return r != nil && r.Token != ""
}

// Challenge reports whether the backend interrupted the login with a 2FA
// challenge instead of a token.
func (r *LoginResult) Challenge() bool {
	return r != nil && r.Token == "" && r.Requires2FA
}

// UserData extracts the minimal session user from a login result.
func (r *LoginResult) UserData() *User {
	if r == nil {
		return nil
	}
	return &User{
		ID:           r.ID,
		Email:        r.Email,
		FirstName:    r.FirstName,
		PaternalName: r.PaternalName,
		MaternalName: r.MaternalName,
		Role:         r.Role,
		Requires2FA:  r.Requires2FA,
	}
}

// Registration is the payload for POST /auth/registro.
type Registration struct {
	FirstName    string `json:"nombre"`
	PaternalName string `json:"apellidoPaterno,omitempty"`
	MaternalName string `json:"apellidoMaterno,omitempty"`
	Email        string `json:"email"`
	Phone        string `json:"telefono,omitempty"`
	Password     string `json:"password"`
}

// RegisteredUser is the created-user payload returned by registration.
type RegisteredUser struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"nombre,omitempty"`
	Role      Role   `json:"rol,omitempty"`
}

// Profile is the full user record returned by GET /usuarios/{id}. Hydrated
// values take precedence over the minimal login payload.
type Profile struct {
	FirstName    string `json:"nombre,omitempty"`
	Email        string `json:"email,omitempty"`
	PaternalName string `json:"apellidoPaterno,omitempty"`
	MaternalName string `json:"apellidoMaterno,omitempty"`
	Location     string `json:"ubicacion,omitempty"`
}
