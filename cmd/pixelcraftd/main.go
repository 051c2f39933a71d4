package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pixelcraft/internal/adapter/supervisor"
	"pixelcraft/internal/api"
	"pixelcraft/internal/assistant"
	"pixelcraft/internal/auth"
	"pixelcraft/internal/collab"
	"pixelcraft/internal/config"
	"pixelcraft/internal/ledger"
	"pixelcraft/internal/policy"
	"pixelcraft/internal/project"
)

func main() {
	cfg := config.Load()

	store, err := ledger.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("open ledger: %v", err)
	}
	defer store.Close()
	if err := store.Init(context.Background()); err != nil {
		log.Fatalf("init ledger: %v", err)
	}

	hub := collab.NewHub(cfg.CollabSendBuffer)
	pol := policy.New(cfg.MaxCanvasDim, cfg.AllowedUploadMIME)

	authSvc := auth.New(store, auth.Config{
		Secret:         cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
	})

	projectSvc := project.New(store, hub, pol)
	projectSvc.SetFileStorage(cfg.FileStoreDir, cfg.MaxUploadBytes)

	var assistantClient *assistant.Client
	var sup *supervisor.Supervisor
	if cfg.AssistantEnabled {
		sup = supervisor.New(supervisor.Config{
			Name:       "assistant",
			BinaryPath: cfg.AssistantAdapter.BinaryPath,
			GRPCAddr:   cfg.AssistantAdapter.GRPCAddr,
		})
		assistantClient = assistant.NewClient(cfg.AssistantAdapter.GRPCAddr, sup)
	}
	assistantSvc := assistant.New(assistantClient, store, assistant.Config{
		Enabled:        cfg.AssistantEnabled,
		RequestTimeout: cfg.AssistantAdapter.RequestTimeout,
		HistoryLimit:   cfg.ChatHistoryLimit,
	})

	server := api.New(
		cfg.HTTPAddr,
		hub,
		authSvc,
		projectSvc,
		assistantSvc,
		cfg.CollabWriteTimeout,
		api.SecurityConfig{
			AuthFailureAlertLimit:  cfg.AuthFailAlertThreshold,
			AuthFailureAlertWindow: cfg.AuthFailAlertWindow,
			TrustedProxyCIDRs:      cfg.TrustedProxyCIDRs,
		},
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("server stopped: %v", err)
	case sig := <-sigCh:
		log.Printf("shutting down signal=%s", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	if assistantClient != nil {
		_ = assistantClient.Close()
	}
	if sup != nil {
		_ = sup.Stop()
	}
}
