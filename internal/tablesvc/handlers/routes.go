package handlers

import (
	"github.com/go-chi/chi"
)

func (h *Handler) SetRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {

		// public routes here
		r.Get("/health", h.HealthHandler)
		r.Post("/auth/anonymous", h.SignInAnonymous)
		r.Post("/auth/signin", h.SignIn)
		r.Get("/badges", h.ListBadges)
		r.Get("/missions/random", h.RandomMission)
		r.Get("/hall-of-fame", h.ListHallOfFame)
		r.Get("/tables/{id}/share", h.ShareTable)
		r.Get("/tables/{id}/qr", h.TableQR)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(h.ident.Verifier())
			r.Use(h.ident.Authenticator(h.fail))

			r.Post("/auth/link", h.LinkCredential)
			r.Post("/migrations", h.MigrateIdentity)

			r.Post("/tables", h.CreateTable)
			r.Post("/tables/join", h.JoinTable)
			r.Get("/tables/{id}", h.GetTable)
			r.Post("/tables/{id}/close", h.CloseTable)
			r.Delete("/tables/{id}", h.DeleteTable)
			r.Delete("/tables/{id}/players/{uid}", h.DeletePlayer)
			r.Post("/tables/{id}/scores", h.SubmitScore)
			r.Post("/tables/{id}/hall-of-fame", h.AddToHallOfFame)
			r.Delete("/hall-of-fame/{id}", h.RemoveFromHallOfFame)
			r.Get("/me/tables", h.MyTables)

			r.Get("/ws", h.HandleWebSocket)
		})
	})

	if h.media != nil {
		r.Get("/media/*", h.ServeMedia)
	}
}
