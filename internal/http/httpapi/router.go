package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/aakash-taneja/miles/internal/http/handlers"
	"github.com/aakash-taneja/miles/internal/middleware"
)

// NewRouter wires the API surface. Everything under /v1 except the health
// check and the public dataset catalogue requires the bearer address.
func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(app.Config.CORSAllowedOrigins),
		middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/datasets", app.DatasetsList)

	// Resolves payloads of the local content-addressed store in development.
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(app.Config.StoragePath))))

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthBearerAddress)

		r.Route("/v1/jobs", func(r chi.Router) {
			r.Post("/", app.JobsCreate)
			r.Get("/", app.JobsList)
			r.Post("/{job_id}/complete", app.JobsComplete)
			r.Post("/{job_id}/publish", app.JobsPublish)
			r.Get("/{job_id}/archive", app.JobsArchive)
		})

		r.Route("/v1/rewards", func(r chi.Router) {
			r.Post("/mint", app.RewardsMint)
			r.Get("/balance", app.RewardsBalance)
		})

		r.Get("/v1/transactions", app.TransactionsList)
		r.Post("/v1/uploads", app.UploadsCreate)
	})

	return r
}
