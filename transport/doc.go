// Package transport holds the protocol adapters the pipeline uses to reach
// the field-service platform: a REST adapter for plain HTTP calls and a
// GraphQL adapter layered on top of it for entity queries.
package transport
