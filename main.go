package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/snaptag/gateway/config"
	"github.com/snaptag/gateway/database"
	"github.com/snaptag/gateway/export"
	"github.com/snaptag/gateway/handlers"
	"github.com/snaptag/gateway/media"
	"github.com/snaptag/gateway/progress"
	"github.com/snaptag/gateway/realtime"
	"github.com/snaptag/gateway/repository"
	"github.com/snaptag/gateway/tagging"
	"github.com/snaptag/gateway/workers"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	storagePaths := []string{cfg.ExportsPath, filepath.Dir(cfg.DatabasePath)}
	for _, p := range storagePaths {
		log.Printf("Ensuring storage directory exists: %s", p)
		if err := os.MkdirAll(p, 0755); err != nil {
			log.Fatalf("FATAL: Failed to create storage directory %s: %v", p, err)
		}
	}

	gormDB, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	if err := database.AutoMigrateModels(gormDB); err != nil {
		log.Fatalf("FATAL: Failed to migrate database: %v", err)
	}

	historyDB, err := database.InitHistoryDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize upload history store: %v", err)
	}
	defer historyDB.Close()

	client := tagging.NewClient(cfg.TaggingServiceURL, cfg.TaggingTimeout)
	refs := repository.NewImageRefRepository(gormDB)

	hub := realtime.NewHub()
	go hub.Run()

	sessions := progress.NewRegistry(cfg.UploadSessionRetention)
	exporter := export.NewExporter(client, cfg.ExportsPath, cfg.ExportWorkers)
	preflight := &media.Preflight{
		MaxFileBytes: cfg.MaxUploadFileBytes,
		MaxDimension: cfg.MaxUploadDimension,
	}

	refresher := workers.NewProfileRefresher(client, cfg.ProfileRefreshInterval, cfg.ProfileRefreshDebounce)
	defer refresher.Stop()

	log.Printf("Using tagging service at %s", cfg.TaggingServiceURL)
	log.Printf("Using database: %s", cfg.DatabasePath)
	log.Printf("Storing CSV exports in: %s", cfg.ExportsPath)

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsHandler.Handler)

	albumHandler := &handlers.AlbumHandler{Service: client, Refs: refs, Cfg: cfg}
	imageHandler := &handlers.ImageHandler{Service: client, Refs: refs}
	keywordHandler := &handlers.KeywordHandler{Service: client}
	exportHandler := &handlers.ExportHandler{Service: client, Exporter: exporter, Hub: hub}
	uploadHandler := &handlers.UploadHandler{
		Service:   client,
		Preflight: preflight,
		Sessions:  sessions,
		Hub:       hub,
		History:   historyDB,
		Refs:      refs,
		Cfg:       cfg,
	}
	profileHandler := &handlers.ProfileHandler{Refresher: refresher}
	wsHandler := &handlers.WSHandler{Hub: hub}

	r.Route("/api", func(r chi.Router) {
		// request-scoped timeout; upload and websocket routes manage their
		// own lifetimes and stay outside it
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Route("/albums", func(r chi.Router) {
				r.Get("/", albumHandler.ListAlbums)
				r.Route("/{album_id}", func(r chi.Router) {
					r.Delete("/", albumHandler.DeleteAlbum)
					r.Get("/images", albumHandler.GetAlbumContents)
					r.Get("/csv", exportHandler.DownloadAlbumCSV)
					r.Post("/images/bulk_delete", imageHandler.BulkDeleteImages)
					r.Route("/images/{image_id}", func(r chi.Router) {
						r.Delete("/", imageHandler.DeleteImage)
						r.Post("/keywords", keywordHandler.AddKeyword)
						r.Delete("/keywords", keywordHandler.DeleteKeyword)
					})
				})
			})

			r.Route("/images/{image_id}", func(r chi.Router) {
				r.Get("/album", imageHandler.LookupAlbum)
			})

			r.Post("/exports/csv", exportHandler.DownloadMultipleCSV)
			r.Get("/profile", profileHandler.GetProfile)
			r.Get("/uploads/history", uploadHandler.ListUploadHistory)
			r.Get("/uploads/{upload_id}", uploadHandler.GetUpload)
			r.Delete("/uploads/{upload_id}", uploadHandler.CancelUpload)
		})

		r.Post("/uploads", uploadHandler.CreateUpload)
		r.Get("/ws/uploads/{upload_id}", wsHandler.UploadSocket)
		r.Get("/ws/exports/{export_id}", wsHandler.ExportSocket)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	serverAddr := ":" + port
	fmt.Printf("Server starting on http://localhost:%s\n", port)
	log.Printf("Server listening on %s", serverAddr)
	// no global read/write timeouts: uploads stream large bodies and the
	// websocket routes hold their connections open
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}
