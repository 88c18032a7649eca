package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Simplici0/machinequote/internal/catalog"
	"github.com/Simplici0/machinequote/internal/config"
	"github.com/Simplici0/machinequote/internal/db"
	"github.com/Simplici0/machinequote/internal/document"
	"github.com/Simplici0/machinequote/internal/imagestore"
	"github.com/Simplici0/machinequote/internal/logging"
)

type server struct {
	catalog     *catalog.Catalog
	images      *imagestore.Store
	renderer    *document.Renderer
	log         zerolog.Logger
	title       string
	outputPath  string
	downloadAs  string
	templateDir string
}

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.IsDev())

	cat, err := loadCatalog(context.Background(), cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load catalog")
	}

	images, err := imagestore.New(cfg.OptionImageDir, cfg.MachineImageDir, imagestore.WithMaxWidth(cfg.ImageMaxWidth))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare image directories")
	}

	srv := newServer(cfg, cat, images, logger)

	addr := ":" + cfg.Port
	logger.Info().Str("addr", addr).Int("machines", cat.Len()).Msg("listening")
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := httpServer.ListenAndServe(); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func newServer(cfg config.Config, cat *catalog.Catalog, images *imagestore.Store, logger zerolog.Logger) *server {
	opts := []document.RendererOption{
		document.WithTitle(cfg.QuoteTitle),
		document.WithLogger(logger),
	}
	if cfg.LogoPath != "" {
		opts = append(opts, document.WithLogo(cfg.LogoPath))
	}

	return &server{
		catalog:     cat,
		images:      images,
		renderer:    document.NewRenderer(images, opts...),
		log:         logger,
		title:       cfg.QuoteTitle,
		outputPath:  cfg.OutputPath,
		downloadAs:  cfg.DownloadName,
		templateDir: cfg.TemplateDir,
	}
}

// loadCatalog reads the SQLite snapshot when CATALOG_DB is set, otherwise the
// JSON file. Either failure is fatal at startup.
func loadCatalog(ctx context.Context, cfg config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogDB == "" {
		return catalog.LoadFile(cfg.CatalogPath)
	}

	if _, err := os.Stat(cfg.CatalogDB); err != nil {
		return nil, fmt.Errorf("catalog database %s: %w", cfg.CatalogDB, err)
	}
	database, err := db.Open(ctx, cfg.CatalogDB)
	if err != nil {
		return nil, err
	}
	defer database.Close()

	return catalog.LoadDB(ctx, database)
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleQuoteForm)
	r.Post("/quote", s.handleQuoteSubmit)
	r.Get("/quote/download", s.handleQuoteDownload)
	r.Post("/options/{code}/image", s.handleOptionImageUpload)
	r.Post("/machines/{name}/image", s.handleMachineImageUpload)
	r.Get("/images/options/{code}", s.handleOptionImage)
	r.Get("/images/machines/{name}", s.handleMachineImage)
	r.Get("/healthz", s.handleHealth)

	return r
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
