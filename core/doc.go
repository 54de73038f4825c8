// Package core provides the foundational domain types and interfaces of the
// dialog engine. It defines the core abstractions for:
//
//   - Sessions (stateful conversational containers with bounded histories)
//   - The session state machine and its static transition table
//   - CollectedData (typed, confidence-scored intake fields)
//   - ConversationMessages (immutable per-turn records)
//   - Interruption state (detection results, recovery stack, saved context)
//   - TurnResult (the sole contract handed back to the transport layer)
//   - Pluggable stores for durable persistence, caching and audit records
//
// The package intentionally keeps implementation concerns (persistence,
// extraction providers, orchestration) out of scope, exposing small
// interfaces to enable custom backends and extensions.
package core
