package query

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/fieldline/go-autopilot/core"
)

func TestListRecentDecisionsMessage_ValidateReturnsRichError(t *testing.T) {
	err := (ListRecentDecisionsMessage{Limit: -1}).Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryValidation {
		t.Fatalf("expected validation category, got %q", rich.Category)
	}
	if rich.TextCode != core.PipelineErrorBadInput {
		t.Fatalf("expected %q text code, got %q", core.PipelineErrorBadInput, rich.TextCode)
	}
}

func TestLoadStatsQuery_NilReaderReturnsRichError(t *testing.T) {
	var qry *LoadStatsQuery
	_, err := qry.Query(context.Background(), LoadStatsMessage{})
	if err == nil {
		t.Fatalf("expected dependency error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
	if rich.TextCode != core.PipelineErrorInternal {
		t.Fatalf("expected %q text code, got %q", core.PipelineErrorInternal, rich.TextCode)
	}
}
