package service

import "github.com/pribylovaa/go-web-auth/internal/models"

// Хуки формирования токена и сессии. Вызываются последовательно при каждом
// выпуске/обновлении пары и при каждом чтении сессии:
// EnrichToken -> подпись токена; валидация токена -> ProjectSession.

// EnrichToken копирует id личности в сессионный токен.
// identity передаётся только при свежем входе; при обновлениях identity == nil
// и уже установленный uid сохраняется как есть (идемпотентность).
// Без токена хук не делает ничего и возвращает вход без изменений.
func EnrichToken(claims *SessionClaims, identity *models.Identity) *SessionClaims {
	if claims == nil {
		return claims
	}

	if identity != nil {
		claims.UserID = identity.ID.String()
	}

	return claims
}

// ProjectSession копирует uid из токена в user-объект наружной сессии.
// Если токен или user-объект отсутствуют — no-op: хук обязан вернуть вход
// без изменений, а не упасть. Токен без uid оставляет session.User.ID пустым.
func ProjectSession(claims *SessionClaims, sess *models.Session) *models.Session {
	if claims == nil || sess == nil || sess.User == nil {
		return sess
	}

	if claims.UserID != "" {
		sess.User.ID = claims.UserID
	}

	return sess
}
