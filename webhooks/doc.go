// Package webhooks contains the intake boundary: signature verification,
// payload parsing, burst coalescing, and hand-off to the event queue.
//
// The intake path always acknowledges an authenticated delivery before
// processing happens; processing outcomes are only observable through the
// stats surface.
package webhooks
