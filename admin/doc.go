// Package admin exposes the operator HTTP surface: session inspection,
// pause/resume/cancel commands, an expired-session cleanup trigger and
// aggregate engine metrics. It is a thin read/command wrapper over the
// session store; conversational traffic never flows through it.
package admin
