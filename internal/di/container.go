// Package di provides dependency injection configuration for the OpenArk server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/openarklib/openark-server/internal/auth"
	"github.com/openarklib/openark-server/internal/backup"
	"github.com/openarklib/openark-server/internal/config"
	"github.com/openarklib/openark-server/internal/di/providers"
	"github.com/openarklib/openark-server/internal/ingest"
	"github.com/openarklib/openark-server/internal/logger"
	"github.com/openarklib/openark-server/internal/media/cdn"
	"github.com/openarklib/openark-server/internal/ocr"
	"github.com/openarklib/openark-server/internal/service"
	"github.com/openarklib/openark-server/internal/uploads"
	"github.com/openarklib/openark-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideAuthKey)

	// Storage layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideActivityDB)
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSpool)
	do.Provide(injector, providers.ProvideWatcher)
	do.Provide(injector, providers.ProvideDispatcher)

	// Ingestion layer
	do.Provide(injector, providers.ProvideMediaStore)
	do.Provide(injector, providers.ProvideTextExtractor)
	do.Provide(injector, providers.ProvideAssembler)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideActivityService)
	do.Provide(injector, providers.ProvideReportService)
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideUserService)
	do.Provide(injector, providers.ProvideBookService)
	do.Provide(injector, providers.ProvideCommentService)
	do.Provide(injector, providers.ProvideSearchService)
	do.Provide(injector, providers.ProvideBackupService)
	do.Provide(injector, providers.ProvideBootstrap)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)
	do.Provide(injector, providers.ProvideMDNSService)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)

	// Storage layer
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.ActivityDBHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*uploads.Spool](injector)
	_ = do.MustInvoke[*providers.WatcherHandle](injector)
	_ = do.MustInvoke[*providers.DispatcherHandle](injector)

	// Ingestion layer
	_ = do.MustInvoke[cdn.Store](injector)
	_ = do.MustInvoke[ocr.TextExtractor](injector)
	_ = do.MustInvoke[*ingest.Assembler](injector)

	// Auth layer
	_ = do.MustInvoke[*auth.TokenService](injector)

	// Business services
	_ = do.MustInvoke[*service.ActivityService](injector)
	_ = do.MustInvoke[*service.ReportService](injector)
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.UserService](injector)
	_ = do.MustInvoke[*service.BookService](injector)
	_ = do.MustInvoke[*service.CommentService](injector)
	_ = do.MustInvoke[*service.SearchService](injector)
	_ = do.MustInvoke[*backup.Service](injector)
	_ = do.MustInvoke[*providers.Bootstrap](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)
	_ = do.MustInvoke[*providers.MDNSServiceHandle](injector)

	return nil
}
