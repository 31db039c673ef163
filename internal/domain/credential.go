package domain

import "time"

// AccountTypeSystem es la categoria por defecto para cuentas nuevas.
const AccountTypeSystem = "system"

// Credential es el registro de identidad de un usuario.
// IsVerified es la unica bandera canonica de estado: la registracion crea
// la credencial sin verificar y la verificacion OTP la activa.
type Credential struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	AccountType  string    `json:"acc_type"`
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PublicUser es la proyeccion de Credential que viaja en tokens y respuestas.
type PublicUser struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	AccountType string `json:"acc_type"`
}

// Public devuelve la proyeccion publica de la credencial.
func (c Credential) Public() PublicUser {
	return PublicUser{
		UserID:      c.UserID,
		Email:       c.Email,
		AccountType: c.AccountType,
	}
}
