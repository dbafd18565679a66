package api

import (
	"net/http"
	"time"

	"contest_hub/internal/api/handler"
	"contest_hub/internal/api/middleware"
	"contest_hub/internal/app/service"
	"contest_hub/internal/common/security"
	"contest_hub/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Services struct {
	Auth        *service.AuthService
	Contests    *service.ContestService
	Settlement  *service.SettlementService
	Submissions *service.SubmissionService
	Winners     *service.WinnerService
	Reconcile   *service.ReconcileService
}

func NewRouter(svc Services, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(metrics.HTTP)
	if requestTimeout > 0 {
		r.Use(chiMiddleware.Timeout(requestTimeout))
	}

	// Verifies a bearer token when present; Authenticator on protected routes enforces it.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	authHandler := handler.NewAuthHandler(svc.Auth)
	r.Route("/auth", authHandler.RegisterRoutes)

	userHandler := handler.NewUserHandler(svc.Auth)
	r.Route("/users", userHandler.RegisterRoutes)

	contestHandler := handler.NewContestHandler(svc.Contests, svc.Winners)
	r.Route("/contests", contestHandler.RegisterRoutes)

	submissionHandler := handler.NewSubmissionHandler(svc.Submissions)
	r.Route("/submissions", submissionHandler.RegisterRoutes)

	paymentHandler := handler.NewPaymentHandler(svc.Settlement)
	r.Group(paymentHandler.RegisterRoutes)

	adminHandler := handler.NewAdminHandler(svc.Reconcile)
	r.Route("/admin", adminHandler.RegisterRoutes)

	return r
}
