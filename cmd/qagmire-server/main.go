// Command qagmire-server serves stored diagnostic runs over HTTP: run
// listings, report documents and chart pages, backed by the same SQLite
// database the CLI writes.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/weave-qa/qagmire/internal/api"
	"github.com/weave-qa/qagmire/internal/store"
	"github.com/weave-qa/qagmire/internal/version"
)

func main() {
	listen := flag.String("listen", ":8080", "Address to listen on")
	cache := flag.String("cache", "qagmire.db", "SQLite run database path")
	flag.Parse()

	log.Print(version.String())

	st, err := store.Open(*cache)
	if err != nil {
		log.Fatalf("failed to open run database: %v", err)
	}
	defer st.Close()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wg.Add(1)
	go func() {
		defer wg.Done()

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(api.NewServer(st).ServeMux()),
		}

		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	log.Printf("graceful shutdown complete")
}
