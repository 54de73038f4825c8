// Package testutil provides fluent builders for constructing domain objects
// in tests without repeating boilerplate wiring.
package testutil
