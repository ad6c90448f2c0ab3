package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-relay/contract"
	"chat-relay/internal"
	"chat-relay/lifecycle"
	"chat-relay/ws"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so deferred cleanup always executes
// before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := internal.GetLoggerFromString(config.LogLevel)

	// 2. Lifecycle manager: the relay singleton plus the page
	// collaborator for everything off the socket path.
	manager := lifecycle.NewManager(log, lifecycle.Options{
		SocketPath:           config.SocketPath,
		BadgerFilepath:       config.BadgerFilepath,
		HistoryLimit:         config.HistoryLimit,
		MaxContentLength:     config.MaxContentLength,
		BufferSize:           config.BufferSize,
		ConnectionBufferSize: config.ConnectionBufferSize,
		RestartInterval:      config.RestartInterval,
		GCInterval:           config.GCInterval,
		MetricInterval:       config.MetricInterval,
	}, pageHandler(config.StaticDir), func(ctx context.Context, log *slog.Logger, relay contract.IRelay, bufferSize int) http.Handler {
		return ws.NewServer(ctx, log, relay, bufferSize)
	})
	defer func() {
		log.Info("Closing relay...")
		_ = manager.Close()
	}()

	// The manager stays lazy for request-driven construction, but a
	// broken configuration must abort startup loudly, so warm it up.
	if _, err := manager.EnsureStarted(); err != nil {
		return err
	}

	// 3. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. HTTP server
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: manager}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting relay server", "address", address, "socket_path", config.SocketPath, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 5. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 6. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	log.Info("Program stopped cleanly")
	return nil
}

// pageHandler is the external page/UI collaborator boundary: a static
// file server when a directory is configured, otherwise a stub that
// makes the boundary visible without serving anything.
func pageHandler(staticDir string) http.Handler {
	if staticDir != "" {
		return http.FileServer(http.Dir(staticDir))
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "page server not configured", http.StatusNotFound)
	})
}
