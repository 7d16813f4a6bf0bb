package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/querygenie/querygenie/cmd"
	"github.com/querygenie/querygenie/internal/api"
	"github.com/querygenie/querygenie/internal/auth"
	"github.com/querygenie/querygenie/internal/database"
	"github.com/querygenie/querygenie/internal/gateway"
	"github.com/querygenie/querygenie/internal/generation"
	"github.com/querygenie/querygenie/internal/web"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type APIConfig struct {
	DatabaseURL        string        `env:"DATABASE_URL" envDefault:"querygenie.db"`
	GeminiAPIKey       string        `env:"GOOGLE_GEMINI_API_KEY,notEmpty,required"`
	GeminiModel        string        `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash-latest"`
	SessionTTL         time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	ConfirmRedirectURL string        `env:"CONFIRM_REDIRECT_URL" envDefault:"/auth"`
	APIPort            string        `env:"API_PORT" envDefault:"8080"`
}

func main() {
	log.Println("Starting QueryGenie server...")

	cmd.LoadEnvFile()

	var cfg APIConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	generator, err := gateway.NewGeminiGateway(context.Background(), gateway.GeminiConfig{
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.GeminiModel,
	})
	if err != nil {
		log.Fatalf("Failed to create Gemini gateway: %v", err)
	}

	authService := auth.NewService(db, cfg.SessionTTL, cfg.ConfirmRedirectURL)
	flow := generation.NewFlow(db, generator)

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(authService.Authenticator)

	apiHandler := api.NewBackendService(db, authService, flow)
	apiHandler.AddRoutes(r)

	pages, err := web.NewPages(db, authService, flow)
	if err != nil {
		log.Fatalf("Failed to set up pages: %v", err)
	}
	pages.AddRoutes(r)

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: r,
	}

	// Goroutine for graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("QueryGenie server listening on port %s", cfg.APIPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %s: %v\n", cfg.APIPort, err)
	}

	log.Println("Server stopped.")
}
