package routes

import (
	"net/http"

	"github.com/Dosada05/league-registration/handlers"
	"github.com/Dosada05/league-registration/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Dosada05/league-registration/docs"
)

// SetupRoutes mounts the admin migration surface behind JWT auth and the
// registration session endpoints publicly.
func SetupRoutes(
	router *chi.Mux,
	migrationHandler *handlers.MigrationHandler,
	registrationHandler *handlers.RegistrationHandler,
	webSocketHandler *handlers.WebSocketHandler,
	jwtSecret []byte,
	allowedOrigins []string,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))
		r.Use(middleware.Authorize(middleware.RoleAdmin))

		r.Route("/admin/profiles", func(r chi.Router) {
			r.Get("/", migrationHandler.ListProfileTypes)
			r.Get("/summary", migrationHandler.GetSummary)
			r.Get("/export.sql", migrationHandler.ExportSQL)
			r.Post("/migrate", migrationHandler.MigrateAllProfiles)

			r.Route("/{profileType}", func(r chi.Router) {
				r.Get("/preview", migrationHandler.PreviewProfile)
				r.Post("/migrate", migrationHandler.MigrateProfile)
				r.Put("/schema", migrationHandler.UpdateSchema)
				r.Get("/next", migrationHandler.NextProfileType)
			})
		})

		r.Route("/admin/jobs", func(r chi.Router) {
			r.Post("/migrate", migrationHandler.MigrateAllJobs)
			r.Get("/{jobID}/preview", migrationHandler.PreviewJob)
			r.Post("/{jobID}/migrate", migrationHandler.MigrateJob)
		})

		r.Get("/ws/migrations", webSocketHandler.ServeMigrations)
	})

	router.Post("/jobs/{jobID}/registrations", registrationHandler.CreateSession)

	router.Route("/registrations/{sessionID}", func(r chi.Router) {
		r.Get("/", registrationHandler.GetSession)
		r.Delete("/", registrationHandler.CloseSession)
		r.Put("/waivers", registrationHandler.AcceptWaivers)

		r.Route("/entities/{entityID}", func(r chi.Router) {
			r.Put("/", registrationHandler.SelectEntity)
			r.Delete("/", registrationHandler.DeselectEntity)
			r.Put("/values", registrationHandler.SetFieldValue)
			r.Put("/eligibility", registrationHandler.SetEligibility)
			r.Get("/fields", registrationHandler.VisibleFields)
			r.Get("/validation", registrationHandler.Validate)
			r.Get("/payload", registrationHandler.Payload)
			r.Get("/teams", registrationHandler.EligibleTeams)
			r.Get("/membership/{field}", registrationHandler.MembershipStatus)
		})
	})
}
