// Package main provides the entry point for the OpenArk server application.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/openarklib/openark-server/internal/di"
	"github.com/openarklib/openark-server/internal/di/providers"
	"github.com/openarklib/openark-server/internal/logger"
)

func main() {
	// Create DI container
	injector := di.NewContainer()

	// Bootstrap all services
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap server: %v\n", err)
		os.Exit(1)
	}

	// Get logger for shutdown messages
	log := do.MustInvoke[*logger.Logger](injector)

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	// Shutdown all services in reverse order
	// The DI container handles shutdown order automatically
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	// Manually shutdown remaining services that need explicit cleanup
	// (services that implement do.Shutdownable are handled automatically)

	// Stores and the search index need explicit shutdown since they use wrapper types
	if storeHandle, err := do.Invoke[*providers.StoreHandle](injector); err == nil {
		log.Info("Closing library store...")
		if err := storeHandle.Shutdown(); err != nil {
			log.Error("Failed to close library store", "error", err)
		} else {
			log.Info("Library store closed successfully")
		}
	}

	if dbHandle, err := do.Invoke[*providers.ActivityDBHandle](injector); err == nil {
		log.Info("Closing activity database...")
		if err := dbHandle.Shutdown(); err != nil {
			log.Error("Failed to close activity database", "error", err)
		}
	}

	if searchHandle, err := do.Invoke[*providers.SearchIndexHandle](injector); err == nil {
		log.Info("Closing search index...")
		if err := searchHandle.Shutdown(); err != nil {
			log.Error("Failed to close search index", "error", err)
		} else {
			log.Info("Search index closed successfully")
		}
	}

	log.Info("Good night, and good luck.")
}
