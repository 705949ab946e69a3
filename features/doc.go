// Package features derives the flat attribute set rule evaluation runs
// against. Extraction is a pure function of enriched data, pipeline context,
// and the supplied clock; entity-derived attributes fall back to neutral
// values so rules never see missing data.
package features
