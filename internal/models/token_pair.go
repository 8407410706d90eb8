package models

import "time"

// TokenPair — пара токенов, выдаваемая при входе и обновлении сессии.
//
// Описание:
//   - SessionToken — подписанный JWT, клиентское доказательство аутентификации;
//   - RefreshToken — случайный секрет для ротации пары; на сервере хранится
//     только его хэш;
//   - SessionExpiresAt — момент истечения сессионного токена (UTC).
type TokenPair struct {
	// SessionToken — JWT для чтения сессии.
	SessionToken string
	// RefreshToken — случайный секрет для обновления пары.
	RefreshToken string
	// SessionExpiresAt — время истечения действия сессионного токена (UTC).
	SessionExpiresAt time.Time
}
