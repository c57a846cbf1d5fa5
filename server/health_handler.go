package server

import (
	"context"
	"net/http"
	"time"

	"medprofile/logger"
)

// RootHandler reports that the service is up.
func (h *APIHandler) RootHandler(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, "Authentication server is running", map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthHandler checks the database and, when enabled, the identity cache.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "OK"
	checks := map[string]string{"database": "up"}
	if err := h.userRepo.Ping(ctx); err != nil {
		logger.Warn("[Health] 数据库不可用", logger.ErrorField(err))
		checks["database"] = "down"
		status = "DEGRADED"
	}
	if h.cache != nil {
		checks["cache"] = "up"
		if err := h.cache.Ping(ctx); err != nil {
			logger.Warn("[Health] Redis不可用", logger.ErrorField(err))
			checks["cache"] = "down"
			status = "DEGRADED"
		}
	}

	code := http.StatusOK
	if status != "OK" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, Response{
		Success: status == "OK",
		Data: map[string]interface{}{
			"status":    status,
			"checks":    checks,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// NotFoundHandler answers routes that do not exist.
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	logger.Warn("[HTTP] 路由不存在", logger.String("method", r.Method), logger.String("path", r.URL.Path))
	writeJSON(w, http.StatusNotFound, Response{
		Success: false,
		Message: "Route not found",
		Data: map[string]interface{}{
			"attemptedPath": r.URL.RequestURI(),
			"method":        r.Method,
		},
	})
}
