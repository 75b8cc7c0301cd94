package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/cwbudde/algo-keys/webcache"
)

func main() {
	root := flag.String("root", "web", "Directory holding the browser build")
	addr := flag.String("addr", ":8080", "Listen address")
	version := flag.String("version", "algo-keys-v1", "Cache generation name")
	assets := flag.String("assets", strings.Join(webcache.DefaultAssets, ","), "Comma-separated assets to precache")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cache := webcache.New(*version, webcache.NewMemoryStore(), webcache.DirFetcher{Root: *root},
		webcache.WithLogger(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	list := splitAssets(*assets)
	if err := cache.Install(ctx, list); err != nil {
		fmt.Fprintf(os.Stderr, "Error installing cache: %v\n", err)
		os.Exit(1)
	}
	if _, err := cache.Activate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error activating cache: %v\n", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           logRequests(logger, cache.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving", "addr", *addr, "root", *root, "version", *version, "precached", len(list))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func splitAssets(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type countingWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *countingWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *countingWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		cw := &countingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(cw, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", cw.status,
			"cache", w.Header().Get("X-Cache"),
			"size", humanize.Bytes(uint64(cw.bytes)),
			"took", time.Since(start),
		)
	})
}
