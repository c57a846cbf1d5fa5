package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medprofile/cache"
	"medprofile/config"
	"medprofile/core/auth"
	"medprofile/db"
	"medprofile/logger"
	"medprofile/repository"
)

// Start connects the stores, serves HTTP and blocks until SIGINT/SIGTERM.
func Start(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	gormDB, err := db.ConnectGormDB(cfg)
	if err != nil {
		return err
	}
	defer db.CloseGormDB(gormDB)

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}

	userRepo := repository.NewGormUserRepository(gormDB)
	tokens := auth.NewTokenManager([]byte(cfg.JWTSecret), cfg.JWTExpiresIn)
	apiHandler := NewAPIHandler(userRepo, tokens)

	if cfg.RedisEnabled {
		redisClient, err := db.ConnectRedis(cfg)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		apiHandler.WithCache(cache.NewUserCache(redisClient))
		logger.Info("Identity cache enabled", logger.String("addr", cfg.RedisAddr()))
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      NewRouter(apiHandler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting",
			logger.String("addr", server.Addr),
			logger.String("env", cfg.Environment),
			logger.Duration("tokenTTL", cfg.JWTExpiresIn))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case sig := <-stop:
		logger.Info("Shutting down server", logger.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
