package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-web-auth/internal/models"
	"github.com/pribylovaa/go-web-auth/internal/storage"
)

// Интеграционные тесты репозитория refresh_tokens: сохранение и поиск по хэшу,
// уникальность хэша, семантика RevokeRefreshToken (активен/повторно/не найден)
// и удаление просроченных токенов.

func seedIntegrationUser(t *testing.T, st *Storage) *models.User {
	t.Helper()

	now := time.Now().UTC()
	u := &models.User{
		ID:           uuid.New(),
		Email:        uuid.New().String() + "@example.com",
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.SaveUser(context.Background(), u))
	return u
}

func newToken(userID uuid.UUID, hash string, ttl time.Duration) *models.RefreshToken {
	now := time.Now().UTC()
	return &models.RefreshToken{
		RefreshTokenHash: hash,
		UserID:           userID,
		CreatedAt:        now,
		ExpiresAt:        now.Add(ttl),
	}
}

func TestIntegration_SaveRefreshToken_And_ByHash_OK(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := seedIntegrationUser(t, st)
	tok := newToken(u.ID, "hash-1", time.Hour)

	require.NoError(t, st.SaveRefreshToken(context.Background(), tok))

	got, err := st.RefreshTokenByHash(context.Background(), tok.RefreshTokenHash)
	require.NoError(t, err)
	require.Equal(t, tok.RefreshTokenHash, got.RefreshTokenHash)
	require.Equal(t, u.ID, got.UserID)
	require.False(t, got.Revoked)
	require.WithinDuration(t, tok.ExpiresAt, got.ExpiresAt, time.Second)
}

func TestIntegration_SaveRefreshToken_DuplicateHash(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := seedIntegrationUser(t, st)

	require.NoError(t, st.SaveRefreshToken(context.Background(), newToken(u.ID, "dup-hash", time.Hour)))

	err := st.SaveRefreshToken(context.Background(), newToken(u.ID, "dup-hash", time.Hour))
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestIntegration_RevokeRefreshToken_Semantics(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := seedIntegrationUser(t, st)
	require.NoError(t, st.SaveRefreshToken(context.Background(), newToken(u.ID, "revoke-me", time.Hour)))

	// Активный токен отзывается.
	revoked, err := st.RevokeRefreshToken(context.Background(), "revoke-me")
	require.NoError(t, err)
	require.True(t, revoked)

	// Повторный отзыв — (false, nil).
	revoked, err = st.RevokeRefreshToken(context.Background(), "revoke-me")
	require.NoError(t, err)
	require.False(t, revoked)

	// Несуществующий хэш — ErrNotFound.
	_, err = st.RevokeRefreshToken(context.Background(), "missing-hash")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_RefreshTokenByHash_NotFound(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	_, err := st.RefreshTokenByHash(context.Background(), "missing-hash")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_DeleteExpiredTokens(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := seedIntegrationUser(t, st)

	require.NoError(t, st.SaveRefreshToken(context.Background(), newToken(u.ID, "expired", -time.Minute)))
	require.NoError(t, st.SaveRefreshToken(context.Background(), newToken(u.ID, "alive", time.Hour)))

	require.NoError(t, st.DeleteExpiredTokens(context.Background(), time.Now().UTC()))

	_, err := st.RefreshTokenByHash(context.Background(), "expired")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.RefreshTokenByHash(context.Background(), "alive")
	require.NoError(t, err)
}
