package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lasoteam/laso-sync/app"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Post("/draft", SaveDraft(app))
	api.Get("/draft", GetDraft(app))
	api.Delete("/draft", DiscardDraft(app))

	api.Post("/form/submit", SubmitForm(app))
	api.Post("/form/import", ImportForm(app))

	api.Get("/queue", ListQueue(app))
	api.Post("/queue/flush", FlushQueue(app))
	api.Post("/connectivity", SetConnectivity(app))

	api.Post("/deeplink", EncodeDeeplink(app))
	api.Get("/deeplink/{token}", DecodeDeeplink(app))

	return api
}
