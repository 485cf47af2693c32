package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-wiki-cms/internal/auth"
	"go-wiki-cms/internal/cache"
	"go-wiki-cms/internal/config"
	"go-wiki-cms/internal/data"
	"go-wiki-cms/internal/handler"
	"go-wiki-cms/internal/logger"
	"go-wiki-cms/internal/middleware"
	"go-wiki-cms/internal/service"
	"go-wiki-cms/internal/storage"
	"go-wiki-cms/internal/view"
	"go-wiki-cms/web"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

func main() {
	// --- Configuration Loading ---
	cfg, err := config.LoadConfig()
	if err != nil {
		// Use fmt.Printf here because the logger is not yet initialized.
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Initialization ---
	log := logger.New(cfg.Log)

	// --- Pre-flight Checks ---
	if cfg.Session.SecretKey == "" || cfg.Session.SecretKey == "CHANGE_ME_IN_PRODUCTION_SECRET!!" {
		log.Fatal(errors.New("session secret key not set"), "Please set a secure WIKI_SESSION_SECRETKEY environment variable.")
	}

	// --- Database Initialization and Migration ---
	log.Info("Applying database migrations...")
	if err := data.ApplyMigrations(cfg.DB, "migrations"); err != nil {
		log.Fatal(err, "Failed to apply migrations")
	}
	log.Info("Migrations applied successfully.")

	log.Info("Connecting to the database...")
	db, err := data.NewDB(cfg.DB)
	if err != nil {
		log.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()
	log.Info("Database connection successful.")

	// --- Session Management Setup ---
	sessionManager := scs.New()
	if cfg.DB.Driver == "mysql" {
		sessionManager.Store = mysqlstore.New(db.DB)
	} else {
		sessionManager.Store = sqlite3store.New(db.DB)
	}
	sessionManager.Lifetime = time.Duration(cfg.Session.Lifetime) * time.Hour
	// Session cookies by default; RememberMe flips persistence per login.
	sessionManager.Cookie.Persist = false
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	sessionManager.Cookie.Secure = cfg.Server.TLS.Enabled

	// --- Authentication and Authorization Setup ---
	log.Info("Initializing authentication and authorization...")
	authenticator, err := auth.NewAuthenticator(&cfg.OIDC)
	if err != nil {
		log.Fatal(err, "Failed to initialize authenticator")
	}
	enforcer, err := auth.NewEnforcer(cfg.DB.Driver, cfg.DB.DSN, "auth_model.conf")
	if err != nil {
		log.Fatal(err, "Failed to initialize enforcer")
	}
	auth.SeedDefaultPolicies(enforcer, log)
	log.Info("Auth components initialized and policies seeded.")

	// --- View Template Initialization ---
	log.Info("Initializing view templates...")
	viewService, err := view.New(web.TemplateFS)
	if err != nil {
		log.Fatal(err, "Failed to initialize view templates")
	}
	log.Info("View templates initialized.")

	// --- Side-car Stores ---
	log.Info("Initializing rendered-page cache...")
	pageCache, err := cache.New(cfg.Cache)
	if err != nil {
		log.Fatal(err, "Failed to initialize cache")
	}
	defer pageCache.Close()

	log.Info("Initializing local activity state...")
	localState, err := data.NewLocalState(cfg.State.FilePath)
	if err != nil {
		log.Fatal(err, "Failed to initialize local state store")
	}
	defer localState.Close()

	blobStore, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatal(err, "Failed to initialize upload storage")
	}

	// The server-side full-text path is a capability probe: on sqlite it
	// simply reports unavailable and search falls back to local ranking.
	fullText := data.NewFullTextIndex(db)
	if fullText.Available() {
		log.Info("Server-side full-text search is available.")
	} else {
		log.Info("Server-side full-text search unavailable; using local ranking fallback.")
	}

	// --- Dependency Injection and Handler Initialization ---
	pageRepository := data.NewSQLPageRepository(db)
	profileRepository := data.NewProfileRepository(db)
	pageService := service.NewPageService(pageRepository, fullText, localState, pageCache, log)

	handlers := handler.Handlers{
		Page:   handler.NewPageHandler(pageService, viewService, cfg.Site, log),
		Admin:  handler.NewAdminHandler(pageService, blobStore, viewService, log),
		Search: handler.NewSearchHandler(pageService, viewService, cfg.Site, sessionManager, log),
		Auth:   handler.NewAuthHandler(authenticator, sessionManager, profileRepository, log),
		Seo:    handler.NewSeoHandler(pageService, cfg.Site),
	}

	authzMiddleware := middleware.Authorizer(enforcer, sessionManager)
	errorMiddleware := middleware.Error(log, viewService)

	// --- Router Setup ---
	router := handler.NewRouter(handlers, sessionManager, authzMiddleware, errorMiddleware, web.StaticFS, blobStore.Dir())

	// --- Server Initialization and Graceful Shutdown ---
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}
	go func() {
		if cfg.Server.TLS.Enabled {
			log.Info(fmt.Sprintf("Starting HTTPS server on %s", server.Addr))
			if err := server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTPS server")
			}
		} else {
			log.Info(fmt.Sprintf("Starting HTTP server on %s", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTP server")
			}
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Warn("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal(err, "Server forced to shutdown")
	}
	log.Info("Server exiting")
}
