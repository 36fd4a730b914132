package router

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"medportal/internal/handler"
	"medportal/pkg/cache"
	"medportal/pkg/jwtutil"
)

func New(
	auth *handler.AuthHandler,
	appts *handler.AppointmentHandler,
	tokens *jwtutil.Generator,
	redisCache *cache.Cache,
) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", handler.Health)

	r.Route("/api/v1", func(api chi.Router) {
		api.Group(func(pub chi.Router) {
			pub.Use(RateLimit(redisCache, 20, time.Minute, "auth"))
			pub.Post("/auth/signup", auth.Signup)
			pub.Post("/auth/verify-otp", auth.VerifyOTP)
			pub.Post("/auth/resend-otp", auth.ResendOTP)
			pub.Post("/auth/password/reset", auth.RequestPasswordReset)
			pub.Post("/auth/password/reset/confirm", auth.ConfirmPasswordReset)
			pub.Post("/auth/login", auth.Login)
		})

		api.Group(func(priv chi.Router) {
			priv.Use(RequireAuth(tokens))
			priv.Use(RateLimit(redisCache, 60, time.Minute, "appt"))
			priv.Get("/appointments/slots", appts.AvailableSlots)
			priv.Post("/appointments", appts.Book)
		})
	})

	return r
}
