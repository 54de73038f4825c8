// Package logging provides a tiny abstraction over slog so downstream code
// can depend on a minimal interface (Logger) while allowing users to plug any
// structured logger. It also offers a richer DialogLogger with contextual
// helpers (session, owner, component) and domain specific logging helpers for
// turns, extraction calls, interruptions and persistence failures.
package logging
