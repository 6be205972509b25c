package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrConflict           = errors.New("conflicto con el estado actual")
	ErrInvalidTransition  = errors.New("transición de estado inválida")
	ErrInsufficientStock  = errors.New("stock insuficiente")

	// ErrTransientConflict indica contención transitoria en la BD (lock timeout,
	// serialization failure). El coordinador de reservas lo reintenta; nadie más.
	ErrTransientConflict = errors.New("conflicto transitorio de concurrencia")
)
