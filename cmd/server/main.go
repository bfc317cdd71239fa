package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"nami/promptsvc/internal/api"
	"nami/promptsvc/internal/config"
	"nami/promptsvc/internal/director"
	"nami/promptsvc/internal/dispatch"
	"nami/promptsvc/internal/events"
	"nami/promptsvc/internal/gate"
	"nami/promptsvc/internal/health"
	"nami/promptsvc/internal/nami"
)

func main() {
	// Load .env file if present (ignored if missing)
	_ = godotenv.Load()

	cfg := config.Load()

	g := gate.New(gate.Options{
		PostSpeechCooldown:   cfg.Gate.PostSpeechCooldown,
		SpeechTimeout:        cfg.Gate.SpeechTimeout,
		MinSpeechInterval:    cfg.Gate.MinSpeechInterval,
		PostResponseCooldown: cfg.Gate.PostResponseCooldown,
		MaxTrackedEvents:     cfg.Gate.MaxTrackedEvents,
	})
	eventLog := events.New(cfg.Events.Max)
	directorClient := director.NewClient(cfg.Director.URL, cfg.Director.ContextTimeout)
	namiClient := nami.NewClient(cfg.Nami.InterjectURL, cfg.Nami.StopURL, cfg.Nami.DeliverTimeout, cfg.Nami.StopTimeout)
	disp := dispatch.New(g, directorClient, namiClient, eventLog)

	h := api.NewHandlers(g, disp, eventLog)
	mux := http.NewServeMux()
	mux.Handle("/", api.NewRouter(h))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health/deep", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		st := health.CheckAll(ctx, cfg)
		if !st.OK {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		api.WriteJSON(w, st)
	})

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           logMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigc
		log.Printf("shutdown signal received; stopping server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	log.Printf("prompt service starting on %s (director: %s, nami: %s)", addr, cfg.Director.URL, cfg.Nami.InterjectURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Println("server error:", err)
		os.Exit(1)
	}
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
