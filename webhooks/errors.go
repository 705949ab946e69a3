package webhooks

import (
	goerrors "github.com/goliatone/go-errors"

	"github.com/fieldline/go-autopilot/core"
)

func webhookError(
	message string,
	category goerrors.Category,
	code int,
	textCode string,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func webhookWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	textCode string,
	metadata map[string]any,
) error {
	if source == nil {
		return webhookError(message, category, code, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func authFailed(message string, metadata map[string]any) error {
	return webhookError(
		message,
		goerrors.CategoryAuth,
		401,
		core.PipelineErrorAuthFailed,
		metadata,
	)
}

func badPayload(source error, message string, metadata map[string]any) error {
	return webhookWrapError(
		source,
		goerrors.CategoryBadInput,
		message,
		400,
		core.PipelineErrorBadInput,
		metadata,
	)
}
