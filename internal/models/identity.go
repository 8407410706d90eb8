package models

import "github.com/google/uuid"

// Identity — минимальное подтверждённое представление пользователя,
// возвращаемое проверкой учётных данных. Именно эти поля попадают
// в сессионный токен.
type Identity struct {
	ID    uuid.UUID
	Email string
	Name  string
}
