// Package interrupt detects conversational interruptions (cancellations,
// escalations, complaints, topic changes and the rest) and applies the
// recovery strategy registered for each type.
//
// Detection is hybrid: a deterministic weighted-phrase classifier runs
// first, and an optional model-backed classifier is consulted only when no
// pattern clears its threshold. Recovery is table-driven; each strategy
// names its actions, the reply sent to the user, the state to move to and
// whether collected data is cleared. Strategies that keep the collected
// data snapshot it first so an explicit resume can restore the exchange
// exactly where it left off.
package interrupt
