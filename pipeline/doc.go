// Package pipeline orchestrates one processing attempt: enrichment, feature
// extraction, rule evaluation, confidence scoring, the execution gate, action
// dispatch, and bookkeeping into stats and decision history.
//
// Only enrichment failures propagate to the queue for retry. Everything else
// is converted into records: an unexpected analysis failure yields a
// zero-confidence record with no dispatched actions.
package pipeline
