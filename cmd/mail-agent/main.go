package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/taployalty/mail-agent/internal/core"
	"github.com/taployalty/mail-agent/internal/di"
	"github.com/taployalty/mail-agent/internal/ports"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	ingress ports.Ingress,
	backend core.GenerationBackend,
	replies core.ReplyStore,
) error {
	defer logger.Sync()

	// Start the ingress
	if err := ingress.Start(); err != nil {
		logger.Fatal("Failed to start ingress", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	// Stop the ingress
	if err := ingress.Stop(); err != nil {
		logger.Error("Failed to stop ingress", zap.Error(err))
	}

	// Close any resources that need closing
	if closer, ok := backend.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close generation backend", zap.Error(err))
		}
	}
	if closer, ok := replies.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close reply store", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}
