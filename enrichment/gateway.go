package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/fieldline/go-autopilot/core"
)

// GraphQLClient is the slice of the transport adapter the gateway needs. The
// returned headers carry the platform's rate-limit hints and may be non-nil
// even when the query fails.
type GraphQLClient interface {
	Query(ctx context.Context, query string, variables map[string]any) (json.RawMessage, map[string]string, error)
}

type GatewayOptions struct {
	Client   GraphQLClient
	Roster   RosterClient
	Throttle *Throttle
	Observer *core.Observer
	Now      func() time.Time
}

// Gateway enriches events with platform data. Job, client, quote, and
// invoice topics each have a dedicated fetch; any other topic proceeds
// without enrichment.
type Gateway struct {
	client   GraphQLClient
	roster   RosterClient
	throttle *Throttle
	observer *core.Observer
	now      func() time.Time
}

func NewGateway(opts GatewayOptions) *Gateway {
	observer := opts.Observer
	if observer == nil {
		observer = core.NopObserver()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Gateway{
		client:   opts.Client,
		roster:   opts.Roster,
		throttle: opts.Throttle,
		observer: observer,
		now:      now,
	}
}

const (
	jobQuery     = `query($id:ID!){ job(id:$id){ title description status clientName assignee total } }`
	clientQuery  = `query($id:ID!){ client(id:$id){ name notes status } }`
	quoteQuery   = `query($id:ID!){ quote(id:$id){ title status clientName total } }`
	invoiceQuery = `query($id:ID!){ invoice(id:$id){ subject status clientName total } }`
)

func (g *Gateway) Enrich(ctx context.Context, event core.Event) (core.EnrichedData, error) {
	data := core.EnrichedData{Event: event}
	if g == nil {
		return data, nil
	}
	startedAt := g.now()

	kind := event.Topic.EntityKind()
	if kind == core.EntityKindUnknown {
		g.observer.LogInfo(ctx, "no enrichment for topic", map[string]any{
			"topic": string(event.Topic),
		})
		return data, nil
	}
	if g.client == nil {
		return data, nil
	}

	if wait := g.throttle.Wait(string(kind)); wait > 0 {
		err := enrichmentFailed(nil, "enrichment: platform bucket is throttled", map[string]any{
			"bucket":         string(kind),
			"retry_after_ms": wait.Milliseconds(),
		})
		g.observer.ObserveOperation(ctx, startedAt, "enrichment.fetch", err, map[string]any{
			"topic": string(event.Topic),
		})
		return data, err
	}

	snapshot, err := g.fetch(ctx, kind, event.ItemID)
	if err != nil {
		g.observer.ObserveOperation(ctx, startedAt, "enrichment.fetch", err, map[string]any{
			"topic":   string(event.Topic),
			"item_id": event.ItemID,
		})
		return data, err
	}
	data.Entity = snapshot
	data.Enriched = true

	if kind == core.EntityKindJob {
		data.Creator, data.CreatorResolved = g.resolveCreator(ctx, event)
	}

	g.observer.ObserveOperation(ctx, startedAt, "enrichment.fetch", nil, map[string]any{
		"topic":   string(event.Topic),
		"item_id": event.ItemID,
	})
	return data, nil
}

func (g *Gateway) fetch(ctx context.Context, kind core.EntityKind, itemID string) (core.EntitySnapshot, error) {
	variables := map[string]any{"id": itemID}

	switch kind {
	case core.EntityKindJob:
		var decoded struct {
			Job *struct {
				Title       string  `json:"title"`
				Description string  `json:"description"`
				Status      string  `json:"status"`
				ClientName  string  `json:"clientName"`
				Assignee    string  `json:"assignee"`
				Total       float64 `json:"total"`
			} `json:"job"`
		}
		if err := g.query(ctx, string(kind), jobQuery, variables, &decoded); err != nil {
			return core.EntitySnapshot{}, err
		}
		if decoded.Job == nil {
			return core.EntitySnapshot{Kind: kind}, nil
		}
		return core.EntitySnapshot{
			Kind:        kind,
			Title:       decoded.Job.Title,
			Description: decoded.Job.Description,
			Status:      decoded.Job.Status,
			ClientName:  decoded.Job.ClientName,
			Assignee:    decoded.Job.Assignee,
			Total:       decoded.Job.Total,
		}, nil

	case core.EntityKindClient:
		var decoded struct {
			Client *struct {
				Name   string `json:"name"`
				Notes  string `json:"notes"`
				Status string `json:"status"`
			} `json:"client"`
		}
		if err := g.query(ctx, string(kind), clientQuery, variables, &decoded); err != nil {
			return core.EntitySnapshot{}, err
		}
		if decoded.Client == nil {
			return core.EntitySnapshot{Kind: kind}, nil
		}
		return core.EntitySnapshot{
			Kind:        kind,
			Title:       decoded.Client.Name,
			Description: decoded.Client.Notes,
			Status:      decoded.Client.Status,
			ClientName:  decoded.Client.Name,
		}, nil

	case core.EntityKindQuote:
		var decoded struct {
			Quote *struct {
				Title      string  `json:"title"`
				Status     string  `json:"status"`
				ClientName string  `json:"clientName"`
				Total      float64 `json:"total"`
			} `json:"quote"`
		}
		if err := g.query(ctx, string(kind), quoteQuery, variables, &decoded); err != nil {
			return core.EntitySnapshot{}, err
		}
		if decoded.Quote == nil {
			return core.EntitySnapshot{Kind: kind}, nil
		}
		return core.EntitySnapshot{
			Kind:       kind,
			Title:      decoded.Quote.Title,
			Status:     decoded.Quote.Status,
			ClientName: decoded.Quote.ClientName,
			Total:      decoded.Quote.Total,
		}, nil

	case core.EntityKindInvoice:
		var decoded struct {
			Invoice *struct {
				Subject    string  `json:"subject"`
				Status     string  `json:"status"`
				ClientName string  `json:"clientName"`
				Total      float64 `json:"total"`
			} `json:"invoice"`
		}
		if err := g.query(ctx, string(kind), invoiceQuery, variables, &decoded); err != nil {
			return core.EntitySnapshot{}, err
		}
		if decoded.Invoice == nil {
			return core.EntitySnapshot{Kind: kind}, nil
		}
		return core.EntitySnapshot{
			Kind:       kind,
			Title:      decoded.Invoice.Subject,
			Status:     decoded.Invoice.Status,
			ClientName: decoded.Invoice.ClientName,
			Total:      decoded.Invoice.Total,
		}, nil
	}

	return core.EntitySnapshot{}, enrichmentFailed(nil,
		fmt.Sprintf("enrichment: no fetch for entity kind %q", kind), nil)
}

func (g *Gateway) query(ctx context.Context, bucket string, query string, variables map[string]any, out any) error {
	data, headers, err := g.client.Query(ctx, query, variables)
	if err != nil {
		g.throttle.Observe(bucket, statusCodeFromError(err), headers)
		return enrichmentFailed(err, "enrichment: platform fetch failed", nil)
	}
	g.throttle.Observe(bucket, 200, headers)
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return enrichmentFailed(err, "enrichment: decode platform response", nil)
	}
	return nil
}

func statusCodeFromError(err error) int {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Metadata == nil {
		return 0
	}
	switch value := rich.Metadata["status_code"].(type) {
	case int:
		return value
	case float64:
		return int(value)
	default:
		return 0
	}
}

// resolveCreator is best effort: a roster failure never aborts the pipeline.
func (g *Gateway) resolveCreator(ctx context.Context, event core.Event) (string, bool) {
	if g.roster == nil {
		return "Unknown", false
	}
	roster, err := g.roster.ListUsers(ctx)
	if err != nil {
		g.observer.LogError(ctx, "creator resolution failed open", map[string]any{
			"topic":   string(event.Topic),
			"user_id": event.UserID,
			"error":   err.Error(),
		})
		return "Unknown", false
	}
	return ResolveCreator(roster, event.UserID, event.UserName)
}
