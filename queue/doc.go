// Package queue provides the in-memory event queue that buffers accepted
// webhook events and drains them through the processing pipeline.
//
// Enqueue never blocks: a saturated queue rejects immediately. At most one
// drain loop is active at a time, so pipeline handlers can treat per-event
// state as single-owner.
package queue
