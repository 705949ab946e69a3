package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	PipelineErrorAuthFailed       = "AUTOPILOT_AUTH_FAILED"
	PipelineErrorQueueFull        = "AUTOPILOT_QUEUE_FULL"
	PipelineErrorEnrichmentFailed = "AUTOPILOT_ENRICHMENT_FAILED"
	PipelineErrorUnknownAction    = "AUTOPILOT_UNKNOWN_ACTION"
	PipelineErrorAnalysisFailed   = "AUTOPILOT_ANALYSIS_FAILED"
	PipelineErrorBadInput         = "AUTOPILOT_BAD_INPUT"
	PipelineErrorNotFound         = "AUTOPILOT_NOT_FOUND"
	PipelineErrorInternal         = "AUTOPILOT_INTERNAL_ERROR"
)

func pipelineErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensurePipelineErrorEnvelope(richErr)
	}

	switch {
	case errors.Is(err, ErrQueueFull):
		return newPipelineError(err.Error(), goerrors.CategoryRateLimit, PipelineErrorQueueFull)
	case errors.Is(err, ErrUnknownAction):
		return newPipelineError(err.Error(), goerrors.CategoryNotFound, PipelineErrorUnknownAction)
	case errors.Is(err, ErrRecordNotFound):
		return newPipelineError(err.Error(), goerrors.CategoryNotFound, PipelineErrorNotFound)
	}

	mapped := goerrors.Wrap(err, goerrors.CategoryInternal, "autopilot pipeline failure")
	return ensurePipelineErrorEnvelope(mapped)
}

func newPipelineError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensurePipelineErrorEnvelope(
		goerrors.New(message, category).WithTextCode(textCode),
	)
}

func ensurePipelineErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = pipelineHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultPipelineTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "autopilot pipeline failure"
	}
	return err
}

func defaultPipelineTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return PipelineErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return PipelineErrorAuthFailed
	case goerrors.CategoryNotFound:
		return PipelineErrorNotFound
	case goerrors.CategoryRateLimit:
		return PipelineErrorQueueFull
	case goerrors.CategoryExternal:
		return PipelineErrorEnrichmentFailed
	case goerrors.CategoryOperation:
		return PipelineErrorAnalysisFailed
	default:
		return PipelineErrorInternal
	}
}

func pipelineHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// MapError normalizes any error into the autopilot error envelope.
func MapError(err error) *goerrors.Error {
	return pipelineErrorMapper(err)
}

// IsRetryable reports whether a processing failure should return the queue
// entry to the retry path. Only enrichment-side (external) failures retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Category == goerrors.CategoryExternal
	}
	return false
}
