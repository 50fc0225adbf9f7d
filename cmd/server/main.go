package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"serverless-bridge/internal/app"
	"serverless-bridge/internal/config"
	"serverless-bridge/internal/logging"
	"serverless-bridge/internal/metrics"
	"serverless-bridge/internal/middleware"
)

func main() {
	tokenSubject := flag.String("token", "", "print an invoke token for this subject and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.GetOptimizedConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logging.Setup(cfg.Log)

	auth := middleware.NewAuthService(&middleware.AuthConfig{
		Secret:        cfg.Invoke.Secret,
		Issuer:        cfg.Invoke.Issuer,
		TokenDuration: time.Duration(cfg.Invoke.ExpiryHours) * time.Hour,
	})

	if *tokenSubject != "" {
		if !auth.Enabled() {
			logrus.Fatal("INVOKE_SECRET is not set")
		}
		token, err := auth.GenerateToken(*tokenSubject)
		if err != nil {
			logrus.Fatalf("Failed to generate token: %v", err)
		}
		fmt.Println(token)
		return
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	collector := metrics.NewCollector()
	router := app.NewEmulator(cfg, app.EmulatorConfig{
		Adapter:   app.NewAdapter(cfg, collector),
		Collector: collector,
		Auth:      auth,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	logrus.WithFields(logrus.Fields{
		"port":        cfg.Port,
		"environment": cfg.Environment,
		"invoke_auth": auth.Enabled(),
	}).Info("Server started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}
