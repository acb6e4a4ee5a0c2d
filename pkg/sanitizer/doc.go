// Package sanitizer normalizes free text arriving from outside the agent
// before it is stored or shown.
//
// All functions are idempotent and never fail: bad input comes back empty or
// shortened rather than as an error.
package sanitizer
