package identity

import "fmt"

// ErrorKind classifies identity failures.
type ErrorKind string

const (
	ErrInvalidCredentials ErrorKind = "invalid_credentials"
	ErrTooManyAttempts    ErrorKind = "too_many_attempts"
	ErrAccountNotFound    ErrorKind = "account_not_found"
	ErrPendingApproval    ErrorKind = "pending_approval"
	ErrNoRole             ErrorKind = "no_role"
	ErrEmailInUse         ErrorKind = "email_in_use"
	ErrWeakPassword       ErrorKind = "weak_password"
	ErrInvalidInput       ErrorKind = "invalid_input"
	ErrInvalidToken       ErrorKind = "invalid_token"
)

var messages = map[ErrorKind]string{
	ErrInvalidCredentials: "Email o contraseña incorrectos",
	ErrTooManyAttempts:    "Demasiados intentos fallidos. Intente más tarde.",
	ErrAccountNotFound:    "Usuario no encontrado. Contacte al administrador.",
	ErrPendingApproval:    "Cuenta pendiente de aprobación por el administrador.",
	ErrNoRole:             "Usuario sin rol asignado. Contacte al administrador.",
	ErrEmailInUse:         "El email ya está registrado",
	ErrWeakPassword:       "La contraseña no cumple los requisitos",
	ErrInvalidInput:       "Datos inválidos",
	ErrInvalidToken:       "Sesión inválida o expirada",
}

// AuthError is the user-facing failure of an identity operation.
// Err, when set, is the underlying cause and is never shown to users.
type AuthError struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *AuthError) Error() string {
	msg := e.Message()
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Message is the localized text shown to users.
func (e *AuthError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	if msg, ok := messages[e.Kind]; ok {
		return msg
	}
	return "Error al iniciar sesión"
}

func (e *AuthError) Unwrap() error { return e.Err }

func authErr(kind ErrorKind, cause error) *AuthError {
	return &AuthError{Kind: kind, Err: cause}
}
