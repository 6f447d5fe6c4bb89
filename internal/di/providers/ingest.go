package providers

import (
	"github.com/samber/do/v2"

	"github.com/openarklib/openark-server/internal/config"
	"github.com/openarklib/openark-server/internal/ingest"
	"github.com/openarklib/openark-server/internal/logger"
	"github.com/openarklib/openark-server/internal/media/cdn"
	"github.com/openarklib/openark-server/internal/ocr"
	"github.com/openarklib/openark-server/internal/uploads"
)

// ProvideMediaStore provides the remote media store client.
func ProvideMediaStore(i do.Injector) (cdn.Store, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return cdn.NewClient(cdn.Config{
		BaseURL: cfg.Media.BaseURL,
		APIKey:  cfg.Media.APIKey,
	}, log.Logger), nil
}

// ProvideTextExtractor provides the vision OCR client.
func ProvideTextExtractor(i do.Injector) (ocr.TextExtractor, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return ocr.NewClient(ocr.Config{
		Endpoint: cfg.OCR.Endpoint,
		APIKey:   cfg.OCR.APIKey,
		Model:    cfg.OCR.Model,
		RPS:      cfg.OCR.RPS,
		Burst:    cfg.OCR.Burst,
	}, log.Logger), nil
}

// ProvideAssembler provides the page ingestion pipeline.
func ProvideAssembler(i do.Injector) (*ingest.Assembler, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	spool := do.MustInvoke[*uploads.Spool](i)
	extractor := do.MustInvoke[ocr.TextExtractor](i)
	media := do.MustInvoke[cdn.Store](i)

	return ingest.NewAssembler(spool, extractor, media, cfg.Media.Folder, cfg.Ingest.Concurrency, log.Logger), nil
}
