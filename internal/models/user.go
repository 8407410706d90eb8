package models

import (
	"time"

	"github.com/google/uuid"
)

// User — учётная запись пользователя в хранилище.
//
// Инвариант: email уникален среди всех пользователей (обеспечивается БД).
// PasswordHash может отсутствовать (пустая строка) — такой пользователь
// создан через внешнего провайдера и не может войти по паролю.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword сообщает, установлен ли у пользователя пароль.
func (u *User) HasPassword() bool {
	return u != nil && u.PasswordHash != ""
}
