package server

import (
	"context"
	"encoding/json"
	"net/http"

	"medprofile/core/auth"
	"medprofile/logger"
	"medprofile/model"
	"medprofile/repository"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// IdentityCache caches users resolved from access tokens.
type IdentityCache interface {
	Get(ctx context.Context, id string) (*model.User, error)
	Set(ctx context.Context, user *model.User) error
	Invalidate(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// APIHandler serves the auth and profile endpoints.
type APIHandler struct {
	userRepo repository.UserRepository
	tokens   *auth.TokenManager
	cache    IdentityCache
}

// NewAPIHandler creates an APIHandler. The identity cache is optional, see WithCache.
func NewAPIHandler(userRepo repository.UserRepository, tokens *auth.TokenManager) *APIHandler {
	return &APIHandler{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

// WithCache enables the identity cache.
func (h *APIHandler) WithCache(c IdentityCache) *APIHandler {
	h.cache = c
	return h
}

// Response is the envelope of every API response.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("编码响应失败", logger.ErrorField(err))
	}
}

func writeSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, Response{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Message: message})
}

func writeValidationError(w http.ResponseWriter, message string, errs []string) {
	writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: message, Errors: errs})
}

// decodeBody reads a JSON request body into dst, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Warn("解析请求体失败", logger.String("path", r.URL.Path), logger.ErrorField(err))
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// invalidateIdentity drops a cached identity; failures only cost a stale read until TTL.
func (h *APIHandler) invalidateIdentity(ctx context.Context, id string) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(ctx, id); err != nil {
		logger.Warn("清除用户缓存失败", logger.String("userID", id), logger.ErrorField(err))
	}
}
