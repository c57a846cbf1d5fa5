package server

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"medprofile/core/auth"
	"medprofile/logger"
	"medprofile/model"
)

type contextKey string

const userContextKey contextKey = "user"

// UserFromContext returns the user attached by AuthMiddleware.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	return user, ok && user != nil
}

// AuthMiddleware verifies the bearer token and attaches the resolved user to
// the request context. A missing token is 401; an invalid, expired or stale
// token is 403.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Access token not provided")
			return
		}

		claims, err := h.tokens.Verify(token)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				writeError(w, http.StatusForbidden, "Token has expired")
				return
			}
			logger.Warn("[Auth] 无效的Token", logger.ErrorField(err))
			writeError(w, http.StatusForbidden, "Invalid token")
			return
		}

		user, err := h.resolveUser(r.Context(), claims.UserID())
		if err != nil {
			logger.Error("[Auth] 查询用户失败", logger.String("userID", claims.UserID()), logger.ErrorField(err))
			writeError(w, http.StatusInternalServerError, "Server error during authentication")
			return
		}
		if user == nil {
			writeError(w, http.StatusForbidden, "User not found")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// resolveUser loads the token subject, consulting the identity cache first.
func (h *APIHandler) resolveUser(ctx context.Context, id string) (*model.User, error) {
	if h.cache != nil {
		user, err := h.cache.Get(ctx, id)
		if err != nil {
			logger.Warn("[Auth] 读取用户缓存失败", logger.String("userID", id), logger.ErrorField(err))
		} else if user != nil {
			return user, nil
		}
	}

	user, err := h.userRepo.FindByID(ctx, id)
	if err != nil || user == nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, user); err != nil {
			logger.Warn("[Auth] 写入用户缓存失败", logger.String("userID", id), logger.ErrorField(err))
		}
	}
	return user, nil
}

// corsMiddleware 添加 CORS 头
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs one line per request.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("[HTTP] 请求完成",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rec.status),
			logger.Duration("duration", time.Since(start)))
	})
}

// recoverMiddleware turns a panic into a generic 500 response.
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rv := recover(); rv != nil {
				logger.Error("[HTTP] 处理请求时发生panic",
					logger.Any("panic", rv),
					logger.String("path", r.URL.Path),
					logger.String("stack", string(debug.Stack())))
				writeError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
