package enrichment

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"

	"github.com/fieldline/go-autopilot/core"
)

func enrichmentFailed(source error, message string, metadata map[string]any) error {
	var err *goerrors.Error
	if source == nil {
		err = goerrors.New(message, goerrors.CategoryExternal)
	} else {
		err = goerrors.Wrap(source, goerrors.CategoryExternal, message)
	}
	err = err.WithCode(http.StatusBadGateway).
		WithTextCode(core.PipelineErrorEnrichmentFailed)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}
