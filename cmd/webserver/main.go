package main

import (
	"context"
	"crypto/rand"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"golang.org/x/time/rate"

	"notequiz"
	"notequiz/internal/config"
)

// one new session every three seconds per client, bursts of five
const (
	sessionInterval = 3 * time.Second
	sessionBurst    = 5
)

func main() {
	cfg, err := config.Load(os.Getenv("NOTEQUIZ_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	notequiz.SetVerbose(cfg.Verbose)

	store, err := notequiz.NewStore(cfg.Store.Engine, cfg.Store.Path)
	if err != nil {
		log.Fatalf("Failed to open quiz store: %v", err)
	}
	defer store.Close()

	var capability notequiz.Capability
	openAI := notequiz.NewOpenAICapability(cfg.AI)
	if openAI.Available() {
		capability = openAI
	} else {
		log.Printf("OPENAI_API_KEY is not set, only stored quizzes can be served")
	}
	scheduler := notequiz.NewScheduler(store, notequiz.NewQuizMaker(capability), cfg.Scheduler)

	server := NewServer(scheduler, openAI.Available(), sessionSecret(), rate.Every(sessionInterval), sessionBurst)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8180"
	}
	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go sweepSessions(ctx, server)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Printf("Starting server on port %s", port)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

// sessionSecret reads SESSION_SECRET, or makes a random key valid until restart
func sessionSecret() []byte {
	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		return []byte(secret)
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("Failed to generate session secret: %v", err)
	}
	return key
}

func sweepSessions(ctx context.Context, server *Server) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if removed := server.Sweep(now); removed > 0 {
				notequiz.VerboseLog("Dropped %d idle quiz sessions", removed)
			}
		}
	}
}
