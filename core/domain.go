package core

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrQueueFull      = errors.New("core: event queue is full")
	ErrUnknownAction  = errors.New("core: unknown action")
	ErrRecordNotFound = errors.New("core: decision record not found")
)

type Topic string

const (
	TopicJobCreate     Topic = "JOB_CREATE"
	TopicJobUpdate     Topic = "JOB_UPDATE"
	TopicClientCreate  Topic = "CLIENT_CREATE"
	TopicClientUpdate  Topic = "CLIENT_UPDATE"
	TopicQuoteCreate   Topic = "QUOTE_CREATE"
	TopicQuoteUpdate   Topic = "QUOTE_UPDATE"
	TopicInvoiceCreate Topic = "INVOICE_CREATE"
	TopicInvoiceUpdate Topic = "INVOICE_UPDATE"
)

type EntityKind string

const (
	EntityKindJob     EntityKind = "job"
	EntityKindClient  EntityKind = "client"
	EntityKindQuote   EntityKind = "quote"
	EntityKindInvoice EntityKind = "invoice"
	EntityKindUnknown EntityKind = "unknown"
)

// EntityKind resolves the referenced entity family from the topic prefix.
func (t Topic) EntityKind() EntityKind {
	prefix, _, _ := strings.Cut(strings.TrimSpace(string(t)), "_")
	switch strings.ToUpper(prefix) {
	case "JOB":
		return EntityKindJob
	case "CLIENT":
		return EntityKindClient
	case "QUOTE":
		return EntityKindQuote
	case "INVOICE":
		return EntityKindInvoice
	default:
		return EntityKindUnknown
	}
}

// Event is an externally sourced notification of a state change on a tracked
// entity. Created at intake and never mutated afterwards.
type Event struct {
	Topic      Topic
	ItemID     string
	UserID     string
	UserName   string
	OccurredAt time.Time
}

// PipelineContext carries the operational context supplied by the caller for
// one processing attempt: current capacity and the technicians available for
// assignment.
type PipelineContext struct {
	CurrentCapacity      int
	AvailableTechnicians []string
}

// QueueEntry wraps an Event while it is owned by the event queue. Re-enqueued
// entries keep their identity and increment Retries.
type QueueEntry struct {
	ID          string
	Event       Event
	Context     PipelineContext
	ReceivedAt  time.Time
	Retries     int
	NextRetryAt *time.Time
}

// EntitySnapshot is the authoritative state fetched from the platform for the
// entity an event references. Fields not applicable to the entity kind stay
// at their zero value.
type EntitySnapshot struct {
	Kind        EntityKind
	Title       string
	Description string
	Status      string
	ClientName  string
	Assignee    string
	Total       float64
}

// EnrichedData is an Event plus its fetched entity snapshot. Constructed per
// processing attempt and discarded afterwards.
type EnrichedData struct {
	Event           Event
	Entity          EntitySnapshot
	Enriched        bool
	Creator         string
	CreatorResolved bool
}

// FeatureSet is the flat attribute map rules evaluate against.
type FeatureSet map[string]any

func (f FeatureSet) Bool(key string) bool {
	if f == nil {
		return false
	}
	value, _ := f[key].(bool)
	return value
}

func (f FeatureSet) Number(key string) float64 {
	if f == nil {
		return 0
	}
	switch typed := f[key].(type) {
	case float64:
		return typed
	case int:
		return float64(typed)
	case int64:
		return float64(typed)
	default:
		return 0
	}
}

func (f FeatureSet) Text(key string) string {
	if f == nil {
		return ""
	}
	value, _ := f[key].(string)
	return value
}

func (f FeatureSet) Clone() FeatureSet {
	if f == nil {
		return FeatureSet{}
	}
	out := make(FeatureSet, len(f))
	for key, value := range f {
		out[key] = value
	}
	return out
}

// Decision is one matched rule with its action list for a processing attempt.
type Decision struct {
	Rule      string
	Priority  int
	Actions   []string
	Reasoning string
}

type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// DecisionRecord is the bookkeeping entry appended to history on every
// analysis. Outcome is mutated later by an out-of-band feedback call.
type DecisionRecord struct {
	ID         string
	Timestamp  time.Time
	Event      Event
	Decisions  []Decision
	Confidence float64
	Features   FeatureSet
	Outcome    Outcome
}

// RuleNames returns the matched rule names in decision order.
func (r DecisionRecord) RuleNames() []string {
	if len(r.Decisions) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.Decisions))
	for _, decision := range r.Decisions {
		names = append(names, decision.Rule)
	}
	return names
}

// ActionResult is the per-action execution record the dispatcher accumulates.
type ActionResult struct {
	Action  string
	Success bool
	Result  map[string]any
	Error   string
}

// AnalysisResult is the outcome of one full processing attempt.
type AnalysisResult struct {
	RecordID      string
	Decisions     []Decision
	Confidence    float64
	Executed      bool
	ActionResults []ActionResult
}
