// Package domain defines the core domain types and interfaces.
//
// Contains the calendar Date type (dates.go), the tracking model and post
// log (domain.go), and shared sentinel errors (errors.go). No
// implementation code - just contracts. Prevents circular imports by
// keeping interfaces on the consumer side.
//
// Day-boundary policy: every calendar date in the system is a UTC date.
// Streak and window math is only correct under a single fixed zone, so
// the zone choice is made once, here, and nowhere else.
package domain
