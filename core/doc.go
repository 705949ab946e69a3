// Package core holds the autopilot domain model and shared contracts.
//
// Mutable pipeline state (stats, decision history) is owned by single
// components in this package; only the queue drain path mutates them, so
// read paths always operate on snapshots.
package core
