// Package prompt defines the user-interaction collaborators consumed by
// the synchronization controller: a blocking multi-choice prompt and a
// passive notifier. Their visual form is the embedding application's
// concern; only the returned tokens matter here.
package prompt

import "context"

// Choice tokens returned by the conflict-resolution prompt.
const (
	// ChoiceLoadCloud discards local state and adopts the stored version.
	ChoiceLoadCloud = "load-cloud"
	// ChoiceKeepLocal overwrites the stored version with local state.
	ChoiceKeepLocal = "keep-local"
	// ChoiceCloneLocal leaves the stored version untouched and duplicates
	// the local force under a fresh identity.
	ChoiceCloneLocal = "clone-local"
	// NoSelection is the sentinel for a dismissed dialog: no decision was
	// made and the data must be left exactly as it was.
	NoSelection = ""
)

// Prompter raises a blocking choice to the user. Implementations return
// one of the fixed choice tokens, or NoSelection when the dialog is
// dismissed or the context is cancelled (a newer conflict replacing a
// stale dialog cancels the context).
type Prompter interface {
	Choose(ctx context.Context, title, message string, choices []string) string
}

// Notifier surfaces passive, non-blocking feedback (toast-equivalent).
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(message string)

// Notify implements Notifier.
func (fn NotifierFunc) Notify(message string) { fn(message) }
