// Package optimize analyzes a session's turn history and advises the turn
// processor on how to ask for the remaining fields.
//
// It is purely advisory: it computes a ConversationPattern from the message
// history, classifies the owner into the nearest behavior profile and ranks
// a fixed strategy catalogue by profile affinity and pattern signals. It
// never writes to the session; the turn processor decides whether the
// top-ranked strategy clears the application threshold and applies at most
// one per turn. Strategies only change how many fields one outbound message
// asks for and whether predicted values are offered for confirmation; the
// fixed field-priority order is never violated.
package optimize
