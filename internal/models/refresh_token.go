package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken — серверная запись refresh-токена для ротации сессий.
// Сам секрет не хранится, только его sha256-хэш.
type RefreshToken struct {
	RefreshTokenHash string
	UserID           uuid.UUID
	CreatedAt        time.Time
	ExpiresAt        time.Time
	Revoked          bool
}
