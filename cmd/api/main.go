package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"prism/internal/artifact"
	"prism/internal/config"
	"prism/internal/gateway"
	"prism/internal/generate"
	"prism/internal/history"
	"prism/internal/llmclient"
	"prism/internal/orchestrator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if len(cfg.APIKeys) == 0 {
		log.Fatal("no API keys configured; set GEMINI_API_KEYS or GEMINI_API_KEY")
	}

	base, err := llmclient.NewGeminiClient(llmclient.NewRoundRobinKeys(cfg.APIKeys...), cfg.Model)
	if err != nil {
		log.Fatalf("init llm client: %v", err)
	}
	// RotateRetry sits outside Timeout so a retried call gets a fresh
	// deadline instead of inheriting the expired one.
	cli := llmclient.Wrap(base,
		llmclient.WithLogging(log.Default()),
		llmclient.RotateRetry(),
		llmclient.Timeout(time.Duration(cfg.RequestTimeoutSec)*time.Second),
		llmclient.RateLimit(cfg.RPS, cfg.Burst),
	)
	defer cli.Close()

	store := history.NewFromEnv(cfg.History.PostgresDSN, cfg.History.FilePath)

	var artifacts artifact.Store
	if cfg.Artifact.Enabled {
		s3, err := artifact.NewS3Store(artifact.S3Config{
			Endpoint:  cfg.Artifact.Endpoint,
			Region:    cfg.Artifact.Region,
			AccessKey: cfg.Artifact.AccessKey,
			SecretKey: cfg.Artifact.SecretKey,
			Bucket:    cfg.Artifact.Bucket,
			UseSSL:    cfg.Artifact.UseSSL,
		})
		if err != nil {
			log.Printf("artifact store disabled: %v", err)
		} else {
			artifacts = s3
		}
	}

	svc := generate.New(cli)
	session := orchestrator.NewSession(cli, svc, orchestrator.WithHistory(store))
	handler := gateway.NewHandler(session, store, artifacts)

	srv := gateway.NewServer(cfg.Port, withCORS(handler.Routes()))

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Vary", "Origin")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}
