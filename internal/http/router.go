package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Handlers everything the router mounts
type Handlers struct {
	Auth     AgentAuthenticator
	Webhooks *WebhookHandler
	Login    *AuthHandler
	Agents   *AgentHandler
	Clients  *ClientHandler
	Config   *ConfigHandler
	Admin    *AdminHandler
}

// RouterOptions HTTP-level settings
type RouterOptions struct {
	AllowedOrigins []string
	AdminToken     string
}

func NewRouter(h Handlers, opts RouterOptions, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Admin-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// public
		r.Post("/webhook/crm-status", h.Webhooks.CRMStatus)
		r.Post("/webhook/ycloud", h.Webhooks.YCloud)
		r.Post("/auth/whatsapp/init", h.Login.InitWhatsApp)
		r.Get("/auth/whatsapp/check/{code}", h.Login.CheckWhatsApp)
		r.Get("/auth/referral/{code}", h.Login.ResolveReferral)
		r.Get("/config", h.Config.Get)

		r.Group(func(r chi.Router) {
			r.Use(DeviceTokenAuth(h.Auth, logger))

			r.Get("/agents/me", h.Agents.Me)
			r.Patch("/agents/me", h.Agents.UpdateMe)
			r.Delete("/agents/me", h.Agents.DeleteMe)
			r.Post("/agents/logout", h.Agents.Logout)
			r.Get("/agents/network", h.Agents.Network)
			r.Get("/agents/referral-qr", h.Agents.ReferralQR)
			r.Get("/bonuses", h.Agents.Bonuses)

			r.Post("/clients/ingest", h.Clients.Ingest)
			r.Get("/clients", h.Clients.List)
			r.Get("/clients/{id}", h.Clients.Get)
		})
	})

	r.Route("/admin/api/v1", func(r chi.Router) {
		r.Use(AdminToken(opts.AdminToken))

		r.Post("/clients/{id}/status", h.Admin.UpdateClientStatus)
		r.Put("/config/{key}", h.Config.Put)
		r.Get("/bonuses/export", h.Admin.ExportBonuses)
		r.Get("/webhook-logs", h.Admin.WebhookLogs)
	})

	return r
}
