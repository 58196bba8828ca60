package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func NewRouter(app *App) http.Handler {
	if app.Logger == nil {
		app.Logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(app.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/words", app.ListWordsHandler)
		r.Get("/words/{word}", app.GetWordHandler)

		r.Get("/history", app.ListHistoryHandler)
		r.Get("/history/{id}", app.GetHistoryHandler)

		r.Post("/sessions", app.CreateSessionHandler)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", app.withSession(app.GetSessionHandler))
			r.Delete("/", app.withSession(app.DeleteSessionHandler))
			r.Put("/mode", app.withSession(app.SetModeHandler))
			r.Put("/word", app.withSession(app.ChooseWordHandler))
			r.Post("/capture/start", app.withSession(app.StartCaptureHandler))
			r.Post("/capture/stop", app.withSession(app.StopCaptureHandler))
			r.Post("/clip", app.withSession(app.UploadClipHandler))
			r.Post("/reset", app.withSession(app.ResetSessionHandler))
			r.Get("/events", app.withSession(app.EventsHandler))
			r.Get("/ws", app.withSession(app.WebSocketHandler))
		})
	})

	r.Get("/media/*", app.MediaHandler)

	return r
}
