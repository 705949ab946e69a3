// Package actions executes the side effects matched rules request. Actions
// are independent fire-and-forget units: one action failing never prevents
// the rest of the batch from running, and nothing performs compensating
// rollback.
package actions
