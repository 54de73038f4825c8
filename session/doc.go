// Package session houses the tiered session store: a bounded in-process
// working set, a best-effort cache tier and a durable backing store, glued
// together with write-through persistence, per-session locking and a
// background expiry sweep. The Session struct and the store contracts
// (core.DurableStore, core.Cache) live in the core package to centralize
// domain contracts; keeping only implementations here prevents higher level
// packages (turn processor, admin surface) from depending on concrete
// storage.
//
// Add additional backends (Postgres, Firestore, etc.) in sub-packages
// without changing any calling code; only the wiring layer needs to decide
// which implementation to instantiate. session/sqlite and session/redis are
// the bundled durable and cache backends.
package session
