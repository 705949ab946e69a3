// Package enrichment fetches the authoritative entity state an event refers
// to from the platform GraphQL API, keyed by topic prefix. JOB_* events also
// resolve the creating user against a cached roster; creator resolution is
// best effort and fails open to "Unknown".
package enrichment
