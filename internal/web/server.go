package web

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/shadowscript/internal/app"
	"github.com/hpungsan/shadowscript/internal/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// NewServer creates the HTTP server for the web viewer, JSON API and /metrics.
func NewServer(a *app.App, version, addr string) (*http.Server, error) {
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, err
	}

	h := &Handlers{
		app:      a,
		renderer: NewRenderer(templateSub, version, a.Logger),
	}

	return &http.Server{
		Addr:              addr,
		Handler:           securityHeaders(routes(h, staticSub)),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

func routes(h *Handlers, static fs.FS) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/fs/", http.StatusFound)
	})
	mux.HandleFunc("GET /fs/{path...}", h.HandleBrowse)
	mux.HandleFunc("GET /haunt", h.HandleHaunt)
	mux.HandleFunc("POST /haunt/trigger", h.HandleHauntTrigger)
	mux.HandleFunc("GET /ghost", h.HandleGhost)
	mux.HandleFunc("POST /ghost/speak", h.HandleGhostSpeak)
	mux.HandleFunc("GET /mail", h.HandleMail)
	mux.HandleFunc("GET /mail/{id}", h.HandleMail)

	mux.HandleFunc("GET /api/fs/{path...}", h.HandleAPIGet)
	mux.HandleFunc("PUT /api/fs/{path...}", h.HandleAPIPut)
	mux.HandleFunc("DELETE /api/fs/{path...}", h.HandleAPIDelete)
	mux.HandleFunc("POST /api/rewrite", h.HandleAPIRewrite)
	mux.HandleFunc("GET /api/haunt/log", h.HandleAPIHauntLog)

	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	return mux
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and shuts it down gracefully on SIGINT/SIGTERM
// or when ctx is done.
func Run(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("ShadowScript UI running", zap.String("url", "http://"+srv.Addr))
	if strings.HasPrefix(srv.Addr, "0.0.0.0") || strings.HasPrefix(srv.Addr, ":") || strings.Contains(srv.Addr, "[::]") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
