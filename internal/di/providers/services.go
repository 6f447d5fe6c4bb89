package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/openarklib/openark-server/internal/auth"
	"github.com/openarklib/openark-server/internal/backup"
	"github.com/openarklib/openark-server/internal/config"
	"github.com/openarklib/openark-server/internal/ingest"
	"github.com/openarklib/openark-server/internal/logger"
	"github.com/openarklib/openark-server/internal/media/cdn"
	"github.com/openarklib/openark-server/internal/service"
	"github.com/openarklib/openark-server/internal/uploads"
	"github.com/openarklib/openark-server/internal/validation"
)

// ProvideActivityService provides the activity recorder.
func ProvideActivityService(i do.Injector) (*service.ActivityService, error) {
	dbHandle := do.MustInvoke[*ActivityDBHandle](i)
	dispatcherHandle := do.MustInvoke[*DispatcherHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewActivityService(dbHandle.Store, dispatcherHandle.Dispatcher, log.Logger), nil
}

// ProvideReportService provides the report aggregator.
func ProvideReportService(i do.Injector) (*service.ReportService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	dbHandle := do.MustInvoke[*ActivityDBHandle](i)
	dispatcherHandle := do.MustInvoke[*DispatcherHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewReportService(storeHandle.Store, dbHandle.Store, dispatcherHandle.Dispatcher, log.Logger), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	activityService := do.MustInvoke[*service.ActivityService](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokenService, activityService, validator, log.Logger), nil
}

// ProvideUserService provides the user management service.
func ProvideUserService(i do.Injector) (*service.UserService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	activityService := do.MustInvoke[*service.ActivityService](i)
	reportService := do.MustInvoke[*service.ReportService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewUserService(storeHandle.Store, activityService, reportService, log.Logger), nil
}

// ProvideBookService provides the book management service.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	assembler := do.MustInvoke[*ingest.Assembler](i)
	spool := do.MustInvoke[*uploads.Spool](i)
	media := do.MustInvoke[cdn.Store](i)
	activityService := do.MustInvoke[*service.ActivityService](i)
	reportService := do.MustInvoke[*service.ReportService](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBookService(
		storeHandle.Store,
		assembler,
		spool,
		media,
		cfg.Media.Folder,
		activityService,
		reportService,
		sseHandle.Manager,
		validator,
		log.Logger,
	), nil
}

// ProvideCommentService provides the comment service.
func ProvideCommentService(i do.Injector) (*service.CommentService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCommentService(storeHandle.Store, sseHandle.Manager, validator, log.Logger), nil
}

// ProvideBackupService provides the library snapshot service.
func ProvideBackupService(i do.Injector) (*backup.Service, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return backup.NewService(storeHandle.Store, cfg.BackupsPath(), 5, log.Logger), nil
}

// ProvideSearchService provides the catalog search service.
func ProvideSearchService(i do.Injector) (*service.SearchService, error) {
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSearchService(searchHandle.Index, storeHandle.Store, log.Logger), nil
}

// Bootstrap runs one-time startup work: seeding the admin account, making
// sure the search index covers the catalog, and computing an initial report.
type Bootstrap struct{}

// ProvideBootstrap runs startup initialization.
func ProvideBootstrap(i do.Injector) (*Bootstrap, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	authService := do.MustInvoke[*service.AuthService](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	reportService := do.MustInvoke[*service.ReportService](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)

	ctx := context.Background()

	if err := authService.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name); err != nil {
		return nil, err
	}

	// A freshly rebuilt index comes up empty; refill it from the catalog.
	if count, err := searchHandle.DocumentCount(); err == nil && count == 0 {
		if err := searchService.ReindexAll(ctx); err != nil {
			log.Warn("Startup search reindex failed", "error", err)
		}
	}

	if err := reportService.Recompute(ctx); err != nil {
		log.Warn("Startup report computation failed", "error", err)
	}

	return &Bootstrap{}, nil
}
