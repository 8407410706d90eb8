// Package http собирает HTTP-поверхность приложения: страницы,
// JSON-эндпоинты аутентификации и служебный мидлвар-стек.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-web-auth/internal/config"
	"github.com/pribylovaa/go-web-auth/internal/service"
	"github.com/pribylovaa/go-web-auth/internal/transport/http/handlers"
	"github.com/pribylovaa/go-web-auth/internal/transport/http/middleware"
)

// Options — параметры сборки роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
}

// NewRouter строит chi-роутер c порядком мидлваров
// Recover -> RequestID -> Logging -> Session (+Timeout).
// Recover снаружи, чтобы паника в любом из внутренних слоёв
// превращалась в ответ 500, а не в упавшее соединение.
func NewRouter(svc *service.Service, cfg *config.Config, opts Options) http.Handler {
	h := handlers.New(svc, cfg)

	r := chi.NewRouter()

	r.Get("/", h.HomePage)
	r.Get("/about", h.AboutPage)
	r.Get("/pricing", h.PricingPage)

	r.Get(cfg.Pages.SignIn, h.LoginPage)
	r.Post(cfg.Pages.SignIn, h.LoginSubmit)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(cfg.Pages.SignIn))
		r.Get(cfg.Pages.Landing, h.DashboardPage)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/sign-in", h.SignIn)
		r.Post("/sign-out", h.SignOut)
		r.Post("/refresh", h.Refresh)
		r.Get("/session", h.Session)
		r.Get("/providers", h.Providers)
	})

	mws := []middleware.Middleware{
		middleware.Recover(),
		middleware.RequestID(),
		middleware.Logging(opts.Logger),
	}
	if opts.Timeout > 0 {
		mws = append(mws, middleware.Timeout(opts.Timeout))
	}
	mws = append(mws, middleware.Session(svc, cfg.Auth.SessionCookie))

	return middleware.Chain(r, mws...)
}
