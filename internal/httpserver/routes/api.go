package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkshelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkshelf/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/linkshelf/internal/httpserver/mw"
)

func init() { Register(registerAPI) }

func registerAPI(r chi.Router, d deps.Deps) {
	r.Route("/api", func(api chi.Router) {
		api.Use(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger), mw.EnforceHost(d.AllowedHosts, d.Logger))

		api.Get("/view", handlers.View(d))
		api.Get("/links/{id}", handlers.GetLink(d))
		api.With(commandLimit(d)).Post("/commands", handlers.Commands(d))
		api.Post("/reload", handlers.Reload(d))
		api.Get("/feed", handlers.Feed(d))
		api.Get("/account", handlers.Account(d))
	})
}

func commandLimit(d deps.Deps) Middleware {
	if d.CommandBurst <= 0 {
		return mw.Passthrough
	}
	return mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.CommandBurst,
		RefillPerIPPerMin: d.CommandPerMinute,
		MaxEntries:        4096,
		TrustProxy:        d.TrustProxy,
	})
}
