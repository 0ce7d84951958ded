package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"coup-lite/apps/server/internal/auth"
	"coup-lite/apps/server/internal/config"
	"coup-lite/apps/server/internal/gateway"
	"coup-lite/apps/server/internal/ledger"
	"coup-lite/apps/server/internal/lobby"
	"coup-lite/apps/server/internal/table"
	"coup-lite/coup/npc"
)

func main() {
	cfg, err := config.ParseEnv()
	if err != nil {
		log.Fatalf("[Server] Invalid configuration: %v", err)
	}

	sessions := auth.NewManager()
	defer sessions.Close()
	ledgerService, ledgerMode, err := ledger.NewService(cfg)
	if err != nil {
		log.Fatalf("[Server] Failed to init ledger service: %v", err)
	}
	defer ledgerService.Close()

	registry := npc.NewRegistry()
	if cfg.BotProfiles != "" {
		if err := registry.LoadFromFile(cfg.BotProfiles); err != nil {
			log.Fatalf("[Server] Failed to load bot profiles: %v", err)
		}
	}
	bots := npc.NewManager(registry, time.Now().UnixNano())

	lby := lobby.New(cfg, table.Deps{Ledger: ledgerService, Auth: sessions, NPC: bots})
	defer lby.Close()
	gw := gateway.New(lby, sessions, cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.HandleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	auth.NewHTTPHandler(sessions).RegisterRoutes(mux)
	ledger.NewHTTPHandler(ledgerService).RegisterRoutes(mux)
	lobby.NewHTTPHandler(lby).RegisterRoutes(mux)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go lby.RunJanitor(ctx, cfg.RoomIdleTTL, time.Minute)

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[Server] Shutdown: %v", err)
		}
	}()

	log.Printf("[Server] Ledger mode: %s", ledgerMode)
	log.Printf("[Server] Bot profiles: %d", registry.Count())
	log.Printf("[Server] Starting WebSocket server on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("[Server] Failed to start: %v", err)
	}
	log.Printf("[Server] Stopped")
}
