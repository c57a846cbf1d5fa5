package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires every endpoint of h. CORS, request logging and panic
// recovery wrap the router so they also apply to unmatched routes.
func NewRouter(h *APIHandler) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/", h.RootHandler).Methods(http.MethodGet)
	router.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)

	// 用户认证相关的API端点
	router.HandleFunc("/api/auth/register", h.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", h.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/me", h.AuthMiddleware(h.MeHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/auth/profile", h.AuthMiddleware(h.ProfileGreetingHandler)).Methods(http.MethodGet)

	// 个人与医疗档案
	router.HandleFunc("/api/profile/medical", h.AuthMiddleware(h.GetMedicalProfileHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/profile/medical", h.AuthMiddleware(h.UpdateMedicalProfileHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/profile/personal", h.AuthMiddleware(h.UpdatePersonalDataHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/profile/complete", h.AuthMiddleware(h.GetCompleteProfileHandler)).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(h.NotFoundHandler)
	router.MethodNotAllowedHandler = http.HandlerFunc(h.NotFoundHandler)

	return corsMiddleware(loggingMiddleware(recoverMiddleware(router)))
}
