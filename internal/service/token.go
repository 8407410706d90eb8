package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-web-auth/internal/models"
	"github.com/pribylovaa/go-web-auth/internal/pkg/log"
	"github.com/pribylovaa/go-web-auth/internal/storage"
)

// SessionClaims — полезная нагрузка сессионного токена.
// UserID проставляется хуком обогащения (EnrichToken) и после установки
// переживает все последующие обновления токена.
type SessionClaims struct {
	UserID string `json:"uid,omitempty"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// UserUUID возвращает uid клеймов как uuid.UUID.
func (c *SessionClaims) UserUUID() (uuid.UUID, error) {
	const op = "service.token.UserUUID"

	uid, err := uuid.Parse(c.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return uid, nil
}

// generateSessionToken генерирует сессионный токен.
// Базовые клеймы берутся из identity (свежий вход) либо переносятся из prior
// (обновление), после чего прогоняются через хук обогащения.
func (s *Service) generateSessionToken(ctx context.Context, identity *models.Identity, prior *SessionClaims, now time.Time) (string, *SessionClaims, error) {
	const op = "service.token.generateSessionToken"

	lg := log.From(ctx)

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.SessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings(s.cfg.Audience),
		},
	}

	switch {
	case prior != nil:
		claims.UserID = prior.UserID
		claims.Email = prior.Email
		claims.Name = prior.Name
	case identity != nil:
		claims.Email = identity.Email
		claims.Name = identity.Name
	}

	claims = EnrichToken(claims, identity)
	claims.Subject = claims.UserID

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		lg.Error("session_token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	return signed, claims, nil
}

// validateSessionToken валидирует сессионный токен и возвращает его клеймы.
func (s *Service) validateSessionToken(tokenStr string) (*SessionClaims, error) {
	const op = "service.token.validateSessionToken"

	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
			}

			return []byte(s.cfg.JWTSecret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(5*time.Second),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience...),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return claims, nil
}

// SessionFromToken — контракт чтения сессии: валидирует сессионный токен
// и возвращает наружный Session, собранный хуком проекции.
// При сконфигурированном кэше повторные чтения того же токена обслуживаются
// из него; промах кэша приводит к валидации и обратной записи (on-demand refresh).
func (s *Service) SessionFromToken(ctx context.Context, tokenStr string) (*models.Session, error) {
	const op = "service.token.SessionFromToken"

	lg := log.From(ctx)

	if tokenStr == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	hash := hashToken(tokenStr)

	if s.scache != nil {
		cached, ok, err := s.scache.Get(ctx, hash)
		if err != nil {
			lg.Warn("session_cache_get_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		} else if ok && time.Now().UTC().Before(cached.ExpiresAt) {
			return cached, nil
		}
	}

	claims, err := s.validateSessionToken(tokenStr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sess := &models.Session{
		User: &models.SessionUser{
			Email: claims.Email,
			Name:  claims.Name,
		},
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}
	sess = ProjectSession(claims, sess)

	if s.scache != nil {
		ttl := time.Until(sess.ExpiresAt)
		if err := s.scache.Set(ctx, hash, sess, ttl); err != nil {
			lg.Warn("session_cache_set_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		}
	}

	return sess, nil
}

// ParseSessionClaims — валидирует токен и отдаёт клеймы как есть
// (для переноса при обновлении пары).
func (s *Service) ParseSessionClaims(tokenStr string) (*SessionClaims, error) {
	return s.validateSessionToken(tokenStr)
}

// generateRefreshToken создает новый refresh-токен.
func (s *Service) generateRefreshToken(ctx context.Context, userID uuid.UUID) (string, error) {
	const (
		op          = "service.token.generateRefreshToken"
		maxAttempts = 5
	)

	lg := log.From(ctx)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			lg.Error("refresh_rand_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
			return "", fmt.Errorf("%s: %w", op, err)
		}
		plain := base64.RawURLEncoding.EncodeToString(b)

		now := time.Now().UTC()
		token := &models.RefreshToken{
			RefreshTokenHash: hashToken(plain),
			UserID:           userID,
			CreatedAt:        now,
			ExpiresAt:        now.Add(s.cfg.RefreshTokenTTL),
			Revoked:          false,
		}

		if err := s.storage.SaveRefreshToken(ctx, token); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				// Редкая коллизия — пробуем сгенерировать заново.
				continue
			}

			lg.Error("save_refresh_token_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
			return "", fmt.Errorf("%s: %w", op, err)
		}

		return plain, nil
	}

	lg.Error("refresh_collision_exceeded",
		slog.String("op", op),
	)

	return "", fmt.Errorf("%s: %w", op, ErrRefreshTokenCollision)
}

// validateRefreshToken валидирует refresh-токен.
func (s *Service) validateRefreshToken(ctx context.Context, plain string) (*models.RefreshToken, error) {
	const op = "service.token.validateRefreshToken"

	lg := log.From(ctx)

	token, err := s.storage.RefreshTokenByHash(ctx, hashToken(plain))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("refresh_lookup_not_found",
				slog.String("op", op),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		lg.Error("refresh_lookup_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if token.Revoked {
		lg.Warn("refresh_revoked",
			slog.String("op", op),
			slog.String("user_id", token.UserID.String()),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	}

	if time.Now().UTC().After(token.ExpiresAt) {
		lg.Warn("refresh_expired",
			slog.String("op", op),
			slog.String("user_id", token.UserID.String()),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
	}

	return token, nil
}
