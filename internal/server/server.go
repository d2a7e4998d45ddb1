// Package server provides the HTTP API for the app generation pipeline.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/lightapp/internal/pipeline"
	"github.com/jonathan/lightapp/internal/registry"
	"github.com/jonathan/lightapp/internal/store"
)

// Version reported by the health endpoint.
const Version = "1.0.0"

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	registry   *registry.Registry
	orch       *pipeline.Orchestrator
	db         *store.DB
	backup     *store.LocalBackup
	validate   *validator.Validate
}

// Config holds server configuration. DB and Backup may each be nil; the
// handlers degrade to whichever persistence is available.
type Config struct {
	Port     int
	Registry *registry.Registry
	Orch     *pipeline.Orchestrator
	DB       *store.DB
	Backup   *store.LocalBackup
}

// New creates a new server instance
func New(cfg Config) *Server {
	s := &Server{
		registry: cfg.Registry,
		orch:     cfg.Orch,
		db:       cfg.DB,
		backup:   cfg.Backup,
		validate: validator.New(),
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withLogging(s.withCORS(s.routes())),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Long timeout for full pipeline runs
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/config/pipeline", s.handlePipelineConfig)

	mux.HandleFunc("POST /api/generate/stage", s.handleGenerateStage)
	mux.HandleFunc("POST /api/generate/stage1_5", s.handleGenerateImages)
	mux.HandleFunc("POST /api/generate/full", s.handleGenerateFull)
	mux.HandleFunc("POST /api/generate/stream", s.handleGenerateStream)
	mux.HandleFunc("POST /api/generate/refine", s.handleRefine)

	mux.HandleFunc("POST /api/apps/save", s.handleSaveApp)
	mux.HandleFunc("GET /api/apps", s.handleListApps)
	mux.HandleFunc("GET /api/apps/featured", s.handleListFeatured)
	mux.HandleFunc("POST /api/apps/feature", s.handleFeatureApp)
	mux.HandleFunc("POST /api/apps/unfeature", s.handleUnfeatureApp)
	mux.HandleFunc("GET /api/apps/{id}", s.handleGetApp)
	mux.HandleFunc("DELETE /api/apps/{id}", s.handleDeleteApp)

	mux.HandleFunc("GET /api/images/{id}", s.handleGetImage)

	mux.HandleFunc("GET /app/{id}", s.handleAppPage)
	mux.HandleFunc("GET /app/{id}/manifest.json", s.handleAppManifest)

	return mux
}

// Handler exposes the configured handler chain, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.db != nil {
		s.db.Close()
	}
	log.Println("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth reports liveness plus which optional subsystems are wired.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": Version,
		"features": map[string]bool{
			"database":    s.db != nil,
			"localBackup": s.backup != nil,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handlePipelineConfig exposes the models and stages without endpoints or
// credentials, for the frontend model picker.
func (s *Server) handlePipelineConfig(w http.ResponseWriter, _ *http.Request) {
	models, stages := s.registry.View()
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"models":     models,
		"stages":     stages,
		"stageOrder": pipeline.Stages(),
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// pipelineError maps a pipeline error to its HTTP status and writes it.
func (s *Server) pipelineError(w http.ResponseWriter, err error) {
	s.errorResponse(w, HTTPStatus(err), err.Error())
}
