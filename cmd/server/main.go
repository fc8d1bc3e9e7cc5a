package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/reportforge/designer/internal/asset"
	"github.com/reportforge/designer/internal/auth"
	"github.com/reportforge/designer/internal/collab"
	"github.com/reportforge/designer/internal/config"
	mw "github.com/reportforge/designer/internal/middleware"
	"github.com/reportforge/designer/internal/store"
	"github.com/reportforge/designer/internal/template"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dsn := cfg.SQLitePath
	if cfg.StoreDriver == "postgres" {
		dsn = cfg.DatabaseURL
	}
	repo, err := store.Open(ctx, cfg.StoreDriver, dsn)
	if err != nil {
		slog.Error("open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	if err := template.EnsurePlayground(ctx, repo); err != nil {
		slog.Error("seed playground", "error", err)
		os.Exit(1)
	}

	authService := auth.NewService(repo, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	templateService := template.NewService(repo)
	templateHandler := template.NewHandler(templateService)

	hub := collab.NewHub(repo.LoadElements, repo.SaveElements,
		collab.WithSessionConfig(collab.SessionConfig{
			Engine:        cfg.Interaction(),
			FrameInterval: cfg.FrameInterval,
		}),
		collab.WithFlushInterval(cfg.FlushInterval),
		collab.WithOpLogLimit(cfg.OpLogLimit),
	)
	go hub.Run()

	assetHandler, err := asset.NewHandler(cfg.AssetDir)
	if err != nil {
		slog.Error("asset store", "error", err)
		os.Exit(1)
	}

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST", "OPTIONS")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Asset endpoints (public, the playground uploads too)
	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")
	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/templates", templateHandler.List).Methods("GET")
	api.HandleFunc("/templates", templateHandler.Create).Methods("POST")
	api.HandleFunc("/templates/{templateId}", templateHandler.Get).Methods("GET")
	api.HandleFunc("/templates/{templateId}/elements", templateHandler.Elements).Methods("GET")

	// WebSocket endpoint
	origins := cfg.Origins()
	r.HandleFunc("/ws/template/{templateId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, templateService, origins)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop the hub first so open templates are saved.
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "store", cfg.StoreDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, authSvc *auth.Service, templates *template.Service, origins []string) {
	templateID := mux.Vars(r)["templateId"]

	var userID string
	var displayName string

	if templateID == template.PlaygroundID {
		userID = "anon-" + uuid.New().String()[:8]
		displayName = "Anonymous"
	} else {
		// Browsers cannot set headers on a websocket handshake.
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		var err error
		userID, err = authSvc.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		if _, err := templates.Get(r.Context(), templateID, userID); err != nil {
			switch {
			case errors.Is(err, template.ErrNotFound):
				http.Error(w, "template not found", http.StatusNotFound)
			case errors.Is(err, template.ErrForbidden):
				http.Error(w, "forbidden", http.StatusForbidden)
			default:
				slog.Error("get template", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		user, err := authSvc.GetUser(r.Context(), userID)
		if err != nil {
			http.Error(w, "user not found", http.StatusInternalServerError)
			return
		}
		displayName = user.DisplayName
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := collab.NewClient(hub, conn, userID, displayName, templateID, clientID)

	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
