// Package turn orchestrates one conversational turn: load or create the
// session, let the interruption manager claim the message, otherwise run
// extraction, validate and merge the fields, decide the next state, ask for
// what is still missing and persist, all under the store's per-key lock so
// concurrent messages from the same owner are strictly serialized.
//
// No failure leaves this package as an unhandled fault. Every path ends in
// a well-formed core.TurnResult carrying either a substantive reply or a
// generic fallback, with the failure recorded on the session.
package turn
