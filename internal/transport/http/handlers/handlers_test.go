package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/go-web-auth/internal/config"
	"github.com/pribylovaa/go-web-auth/internal/models"
	"github.com/pribylovaa/go-web-auth/internal/service"
	"github.com/pribylovaa/go-web-auth/internal/storage"
	"github.com/pribylovaa/go-web-auth/internal/transport/http/middleware"
	"github.com/pribylovaa/go-web-auth/mocks"
)

// withSession кладёт сессию в контекст так же, как это делает мидлвар Session.
func withSession(ctx context.Context, sess *models.Session) context.Context {
	return context.WithValue(ctx, middleware.CtxSession, sess)
}

func testConfig() *config.Config {
	return &config.Config{
		Env: "local",
		Auth: config.AuthConfig{
			JWTSecret:       "unit-secret",
			SessionTTL:      time.Minute,
			RefreshTokenTTL: 24 * time.Hour,
			Issuer:          "web-auth",
			Audience:        []string{"web"},
			SessionCookie:   "wa_session",
			RefreshCookie:   "wa_refresh",
		},
		Pages: config.PagesConfig{SignIn: "/login", Landing: "/dashboard"},
	}
}

func newTestHandlers(t *testing.T) (*Handlers, *mocks.MockStorage) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	cfg := testConfig()
	st := mocks.NewMockStorage(ctrl)
	svc := service.New(st, cfg.Auth, cfg.Providers)

	return New(svc, cfg), st
}

func seedUser(t *testing.T, st *mocks.MockStorage, email, password string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         "Test User",
	}
	st.EXPECT().UserByEmail(gomock.Any(), email).Return(user, nil)
	return user
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func postJSON(target, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func cookieByName(t *testing.T, rr *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginSubmit_OK(t *testing.T) {
	h, st := newTestHandlers(t)

	seedUser(t, st, "user@example.com", "Abcdef1!")
	st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	rr := httptest.NewRecorder()
	h.LoginSubmit(rr, postForm("/login", url.Values{
		"email":    {"user@example.com"},
		"password": {"Abcdef1!"},
	}))

	require.Equal(t, http.StatusSeeOther, rr.Code)
	require.Equal(t, "/dashboard", rr.Header().Get("Location"))

	sess := cookieByName(t, rr, "wa_session")
	require.NotNil(t, sess)
	require.NotEmpty(t, sess.Value)
	require.True(t, sess.HttpOnly)

	refresh := cookieByName(t, rr, "wa_refresh")
	require.NotNil(t, refresh)
	require.NotEmpty(t, refresh.Value)
}

func TestLoginSubmit_InvalidCredentials(t *testing.T) {
	h, st := newTestHandlers(t)

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(nil, storage.ErrNotFound)

	rr := httptest.NewRecorder()
	h.LoginSubmit(rr, postForm("/login", url.Values{
		"email":    {"user@example.com"},
		"password": {"wrong"},
	}))

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Contains(t, rr.Body.String(), msgInvalidCredentials)
	// Введённый email сохраняется в форме.
	require.Contains(t, rr.Body.String(), "user@example.com")
	// Cookie не выставляются.
	require.Nil(t, cookieByName(t, rr, "wa_session"))
}

func TestLoginSubmit_StorageFailure(t *testing.T) {
	h, st := newTestHandlers(t)

	st.EXPECT().UserByEmail(gomock.Any(), gomock.Any()).Return(nil, context.DeadlineExceeded)

	rr := httptest.NewRecorder()
	h.LoginSubmit(rr, postForm("/login", url.Values{
		"email":    {"user@example.com"},
		"password": {"Abcdef1!"},
	}))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Contains(t, rr.Body.String(), msgUnexpected)
}

func TestSignIn_JSON_OK_NoRedirect(t *testing.T) {
	h, st := newTestHandlers(t)

	seedUser(t, st, "user@example.com", "Abcdef1!")
	st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	rr := httptest.NewRecorder()
	h.SignIn(rr, postJSON("/auth/sign-in",
		`{"provider":"credentials","email":"user@example.com","password":"Abcdef1!","redirect":false}`))

	require.Equal(t, http.StatusOK, rr.Code)

	var res models.SignInResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.True(t, res.OK)
	require.Empty(t, res.Error)
	require.Equal(t, "/dashboard", res.URL)

	require.NotNil(t, cookieByName(t, rr, "wa_session"))
	require.NotNil(t, cookieByName(t, rr, "wa_refresh"))
}

func TestSignIn_JSON_InvalidCredentials_NoRedirect(t *testing.T) {
	h, st := newTestHandlers(t)

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(nil, storage.ErrNotFound)

	rr := httptest.NewRecorder()
	h.SignIn(rr, postJSON("/auth/sign-in",
		`{"email":"user@example.com","password":"wrong","redirect":false}`))

	require.Equal(t, http.StatusUnauthorized, rr.Code)

	var res models.SignInResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.False(t, res.OK)
	require.Equal(t, msgInvalidCredentials, res.Error)
	require.Empty(t, res.URL)
}

func TestSignIn_JSON_RedirectByDefault(t *testing.T) {
	h, st := newTestHandlers(t)

	seedUser(t, st, "user@example.com", "Abcdef1!")
	st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	rr := httptest.NewRecorder()
	h.SignIn(rr, postJSON("/auth/sign-in",
		`{"email":"user@example.com","password":"Abcdef1!"}`))

	require.Equal(t, http.StatusSeeOther, rr.Code)
	require.Equal(t, "/dashboard", rr.Header().Get("Location"))
}

func TestSignIn_JSON_UnknownProvider(t *testing.T) {
	h, _ := newTestHandlers(t)

	rr := httptest.NewRecorder()
	h.SignIn(rr, postJSON("/auth/sign-in",
		`{"provider":"github","email":"user@example.com","password":"x","redirect":false}`))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "unknown_provider")
}

func TestSignIn_JSON_MalformedBody(t *testing.T) {
	h, _ := newTestHandlers(t)

	rr := httptest.NewRecorder()
	h.SignIn(rr, postJSON("/auth/sign-in", `{"email":`))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "bad_request")
}

func TestSession_Unauthenticated(t *testing.T) {
	h, _ := newTestHandlers(t)

	rr := httptest.NewRecorder()
	h.Session(rr, httptest.NewRequest(http.MethodGet, "/auth/session", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var res sessionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Equal(t, "unauthenticated", res.Status)
	require.Nil(t, res.Data)
}

func TestSession_Authenticated(t *testing.T) {
	h, _ := newTestHandlers(t)

	sess := &models.Session{
		User:      &models.SessionUser{ID: uuid.New().String(), Email: "user@example.com"},
		ExpiresAt: time.Now().UTC().Add(time.Minute),
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req = req.WithContext(withSession(req.Context(), sess))

	rr := httptest.NewRecorder()
	h.Session(rr, req)

	var res sessionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Equal(t, "authenticated", res.Status)
	require.NotNil(t, res.Data)
	require.Equal(t, sess.User.ID, res.Data.User.ID)
}

func TestSignOut_RedirectFlow(t *testing.T) {
	h, st := newTestHandlers(t)

	st.EXPECT().RevokeRefreshToken(gomock.Any(), gomock.Any()).Return(true, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/sign-out", nil)
	req.AddCookie(&http.Cookie{Name: "wa_refresh", Value: "refresh-plain"})

	rr := httptest.NewRecorder()
	h.SignOut(rr, req)

	require.Equal(t, http.StatusSeeOther, rr.Code)
	require.Equal(t, "/login", rr.Header().Get("Location"))

	// Обе auth-cookie погашены, уведомление выставлено.
	sess := cookieByName(t, rr, "wa_session")
	require.NotNil(t, sess)
	require.Less(t, sess.MaxAge, 0)

	refresh := cookieByName(t, rr, "wa_refresh")
	require.NotNil(t, refresh)
	require.Less(t, refresh.MaxAge, 0)

	notice := cookieByName(t, rr, noticeCookie)
	require.NotNil(t, notice)
	require.Equal(t, "signed_out", notice.Value)
}

func TestSignOut_JSON(t *testing.T) {
	h, st := newTestHandlers(t)

	st.EXPECT().RevokeRefreshToken(gomock.Any(), gomock.Any()).Return(true, nil)

	req := postJSON("/auth/sign-out", `{"redirect":false}`)
	req.AddCookie(&http.Cookie{Name: "wa_refresh", Value: "refresh-plain"})

	rr := httptest.NewRecorder()
	h.SignOut(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"ok":true}`, rr.Body.String())
}

func TestSignOut_RepeatIsIdempotentForClient(t *testing.T) {
	h, st := newTestHandlers(t)

	// Токен уже отозван: клиент всё равно получает чистый выход.
	st.EXPECT().RevokeRefreshToken(gomock.Any(), gomock.Any()).Return(false, nil)

	req := postJSON("/auth/sign-out", `{"redirect":false}`)
	req.AddCookie(&http.Cookie{Name: "wa_refresh", Value: "refresh-plain"})

	rr := httptest.NewRecorder()
	h.SignOut(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Less(t, cookieByName(t, rr, "wa_session").MaxAge, 0)
}

func TestRefresh_OK(t *testing.T) {
	h, st := newTestHandlers(t)

	user := &models.User{ID: uuid.New(), Email: "user@example.com", Name: "Test User"}
	now := time.Now().UTC()

	st.EXPECT().RefreshTokenByHash(gomock.Any(), gomock.Any()).Return(&models.RefreshToken{
		UserID:    user.ID,
		ExpiresAt: now.Add(time.Hour),
	}, nil)
	st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)
	st.EXPECT().RevokeRefreshToken(gomock.Any(), gomock.Any()).Return(true, nil)
	st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "wa_refresh", Value: "refresh-plain"})

	rr := httptest.NewRecorder()
	h.Refresh(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var res refreshResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.True(t, res.OK)

	sess := cookieByName(t, rr, "wa_session")
	require.NotNil(t, sess)
	require.NotEmpty(t, sess.Value)
}

func TestRefresh_MissingToken(t *testing.T) {
	h, _ := newTestHandlers(t)

	rr := httptest.NewRecorder()
	h.Refresh(rr, httptest.NewRequest(http.MethodPost, "/auth/refresh", nil))

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Contains(t, rr.Body.String(), "unauthenticated")
}

func TestProviders_CredentialsAlwaysDeclared(t *testing.T) {
	h, _ := newTestHandlers(t)

	rr := httptest.NewRecorder()
	h.Providers(rr, httptest.NewRequest(http.MethodGet, "/auth/providers", nil))

	var out []providerInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out, 1)
	require.Equal(t, "credentials", out[0].ID)
}

func TestLoginPage_RedirectsAuthenticated(t *testing.T) {
	h, _ := newTestHandlers(t)

	sess := &models.Session{
		User:      &models.SessionUser{ID: uuid.New().String()},
		ExpiresAt: time.Now().UTC().Add(time.Minute),
	}
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req = req.WithContext(withSession(req.Context(), sess))

	rr := httptest.NewRecorder()
	h.LoginPage(rr, req)

	require.Equal(t, http.StatusSeeOther, rr.Code)
	require.Equal(t, "/dashboard", rr.Header().Get("Location"))
}

func TestLoginPage_ShowsNoticeOnce(t *testing.T) {
	h, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(&http.Cookie{Name: noticeCookie, Value: "signed_out"})

	rr := httptest.NewRecorder()
	h.LoginPage(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), msgSignedOut)

	// Cookie уведомления погашена вместе с ответом.
	cleared := cookieByName(t, rr, noticeCookie)
	require.NotNil(t, cleared)
	require.Less(t, cleared.MaxAge, 0)
}

func TestHeader_TogglesByAuthState(t *testing.T) {
	h, _ := newTestHandlers(t)

	// Анонимный рендер: ссылка на вход.
	rr := httptest.NewRecorder()
	h.AboutPage(rr, httptest.NewRequest(http.MethodGet, "/about", nil))
	require.Contains(t, rr.Body.String(), "Sign In")
	require.NotContains(t, rr.Body.String(), "Sign Out")

	// Аутентифицированный: кнопка выхода и имя пользователя.
	sess := &models.Session{
		User:      &models.SessionUser{ID: "id", Email: "user@example.com", Name: "Test User"},
		ExpiresAt: time.Now().UTC().Add(time.Minute),
	}
	req := httptest.NewRequest(http.MethodGet, "/about", nil)
	req = req.WithContext(withSession(req.Context(), sess))

	rr = httptest.NewRecorder()
	h.AboutPage(rr, req)
	require.Contains(t, rr.Body.String(), "Sign Out")
	require.Contains(t, rr.Body.String(), "Test User")
}

func TestHeader_ActiveNavIsExactMatch(t *testing.T) {
	h, _ := newTestHandlers(t)

	rr := httptest.NewRecorder()
	h.AboutPage(rr, httptest.NewRequest(http.MethodGet, "/about", nil))

	body := rr.Body.String()
	require.Contains(t, body, `href="/about" class="active"`)
	require.NotContains(t, body, `href="/pricing" class="active"`)
	require.NotContains(t, body, `href="/dashboard" class="active"`)
}
