package httpserver

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/birdy-nyquiste/AI-Driven-News-Reframer/internal/middleware"
	"github.com/birdy-nyquiste/AI-Driven-News-Reframer/internal/web"
)

type RouterDeps struct {
	Logger     *slog.Logger
	Handler    *web.Handler
	SessionTTL time.Duration
}

// NewRouter assembles the chi router with the shared middleware stack.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recover(deps.Logger))
	r.Use(middleware.Logging(deps.Logger))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Session(deps.SessionTTL))

		r.Get("/draft", deps.Handler.GetDraft)
		r.Put("/draft/title", deps.Handler.SetTitle)
		r.Post("/draft/articles", deps.Handler.AddArticle)
		r.Delete("/draft/articles/{articleID}", deps.Handler.RemoveArticle)
		r.Put("/draft/instruction", deps.Handler.SetInstruction)
		r.Delete("/draft", deps.Handler.ClearDraft)

		r.Get("/presets", deps.Handler.ListPresets)

		r.Post("/tasks", deps.Handler.CreateTask)
		r.Get("/tasks", deps.Handler.ListTasks)
		r.Get("/tasks/{taskID}", deps.Handler.GetTask)
		r.Post("/tasks/{taskID}/process", deps.Handler.ProcessTask)
		r.Get("/tasks/{taskID}/images/{name}", deps.Handler.GetImage)
	})

	return r
}
