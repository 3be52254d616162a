package main

import (
	"chat-relay/auth"
	"chat-relay/infrastructure/ws/server"
	"chat-relay/internal"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"chat-relay/storage"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and owns the process lifecycle, so deferred
// cleanups always execute before the exit code is returned to main.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB), a failed handshake does not stop the listener
	store := storage.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING), log)
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = store.Close()
	}()

	// 3. Services
	tokens := auth.NewTokenIssuer(config.AuthTokenSecret, config.AuthTokenDuration)
	identity := services.NewIdentityService(repositories.NewUserRepository(store), tokens)
	messages := services.NewMessageService(repositories.NewMessageRepository(store, log))

	// 4. Supervision & relay
	sup := workers.NewSupervisor(log, config.RestartInterval)
	registry := runtime.NewRegistry(log)
	relay := runtime.NewRelay(log, sup, registry, identity, messages,
		config.NumberOfWorkers, config.BufferSize, config.HandlerTimeout, config.BroadcastDirectory)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	relayDone := make(chan struct{})
	go func() {
		relay.Start(ctx)
		close(relayDone)
	}()

	// 6. HTTP Server Setup
	mux := http.NewServeMux()
	mux.Handle("/ws", server.NewRelayServer(log, relay,
		config.ConnectionBufferSize, config.PingInterval, config.HandlerTimeout))
	mux.Handle("/", http.FileServer(http.Dir(config.StaticDir)))

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{Addr: address, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	// Use an error channel to capture ListenAndServe() issues
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting relay server", "address", address, "instance_id", relay.InstanceID())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	code := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case runErr = <-errChan:
		code = exitRuntime
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	relay.Stop()
	<-relayDone
	log.Info("Program stopped cleanly")

	return code, runErr
}
