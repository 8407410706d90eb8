package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/go-web-auth/internal/models"
	"github.com/pribylovaa/go-web-auth/internal/pkg/log"
	"github.com/pribylovaa/go-web-auth/internal/pkg/redact"
	"github.com/pribylovaa/go-web-auth/internal/storage"
)

// Authorize проверяет пару email+пароль против хранилища и возвращает
// минимальную личность пользователя.
//
// Отказы (все сворачиваются в ErrInvalidCredentials, причина остаётся в логах):
//   - пустой email или пароль;
//   - пользователь с таким email не найден;
//   - у пользователя не установлен пароль (создан внешним провайдером);
//   - пароль не совпал с хэшем.
//
// Побочных эффектов нет: только чтение хранилища, без локаутов и rate-limit.
func (s *Service) Authorize(ctx context.Context, email, password string) (*models.Identity, error) {
	const op = "service.auth.Authorize"

	lg := log.From(ctx)

	normEmail := strings.ToLower(strings.TrimSpace(email))
	if normEmail == "" || password == "" {
		lg.Warn("authorize_missing_credentials", slog.String("op", op))
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.storage.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("authorize_user_not_found",
				slog.String("op", op),
				slog.String("email", redact.Email(normEmail)),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.HasPassword() {
		lg.Warn("authorize_no_password_set",
			slog.String("op", op),
			slog.String("email", redact.Email(normEmail)),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if !checkPassword(user.PasswordHash, password) {
		lg.Warn("authorize_password_mismatch",
			slog.String("op", op),
			slog.String("email", redact.Email(normEmail)),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	return &models.Identity{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
	}, nil
}

// SignIn выполняет вход через указанного провайдера и выдаёт пару токенов.
// Прямой вход поддерживает только ProviderCredentials; объявленные внешние
// провайдеры ходят через собственный flow и сюда не попадают.
func (s *Service) SignIn(ctx context.Context, provider, email, password string) (*models.TokenPair, *models.Identity, error) {
	const op = "service.auth.SignIn"

	if provider != ProviderCredentials {
		return nil, nil, fmt.Errorf("%s: %w: %q", op, ErrUnknownProvider, provider)
	}

	identity, err := s.Authorize(ctx, email, password)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.issueTokenPair(ctx, identity, "", nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return pair, identity, nil
}

// RefreshSession обновляет пару токенов по refresh-токену.
// prior — клеймы ещё не истекшего сессионного токена клиента (могут быть nil);
// уже установленный uid переносится в новый токен без повторной аутентификации.
func (s *Service) RefreshSession(ctx context.Context, refreshToken string, prior *SessionClaims) (*models.TokenPair, error) {
	const op = "service.auth.RefreshSession"

	token, err := s.validateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByID(ctx, token.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	identity := &models.Identity{ID: user.ID, Email: user.Email, Name: user.Name}

	oldHash := hashToken(refreshToken)

	// Свежая личность не передаётся: uid обязан пережить обновление за счёт
	// переноса клеймов (инвариант хука обогащения). Если клиент не предъявил
	// прежний токен, выпускаем как свежий вход.
	if prior != nil && prior.UserID != "" {
		return s.issueTokenPair(ctx, nil, oldHash, prior)
	}

	return s.issueTokenPair(ctx, identity, oldHash, nil)
}

// SignOut отзывает refresh-токен и вычищает сессию из кэша.
// Повторный выход с тем же токеном — ErrTokenRevoked.
func (s *Service) SignOut(ctx context.Context, refreshToken, sessionToken string) error {
	const op = "service.auth.SignOut"

	lg := log.From(ctx)

	if s.scache != nil && sessionToken != "" {
		if err := s.scache.Delete(ctx, hashToken(sessionToken)); err != nil {
			// Кэш не является источником истины: запись и так умрёт по TTL.
			lg.Warn("session_cache_delete_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		}
	}

	if refreshToken == "" {
		return nil
	}

	revoked, err := s.storage.RevokeRefreshToken(ctx, hashToken(refreshToken))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if !revoked {
		return fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	}

	return nil
}

// issueTokenPair выпускает новую пару session+refresh токенов.
// Ровно один из identity/prior должен быть задан: identity — свежий вход,
// prior — перенос клеймов при обновлении. Если oldRefreshHash != "",
// старый refresh-токен атомарно отзывается.
func (s *Service) issueTokenPair(ctx context.Context, identity *models.Identity, oldRefreshHash string, prior *SessionClaims) (*models.TokenPair, error) {
	const op = "service.auth.issueTokenPair"

	now := time.Now().UTC()

	sessionToken, claims, err := s.generateSessionToken(ctx, identity, prior, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if oldRefreshHash != "" {
		revoked, err := s.storage.RevokeRefreshToken(ctx, oldRefreshHash)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
			}

			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if !revoked {
			return nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
		}
	}

	userID, err := claims.UserUUID()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	plain, err := s.generateRefreshToken(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		SessionToken:     sessionToken,
		RefreshToken:     plain,
		SessionExpiresAt: now.Add(s.cfg.SessionTTL),
	}, nil
}

// hashPassword хэширует пароль с помощью bcrypt.
func hashPassword(password string) (string, error) {
	const op = "service.auth.hashPassword"

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// checkPassword сравнивает пароль с хэшем.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// hashToken возвращает base64(sha256) от секрета токена.
func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
