// Package push defines the push-notification channel that delivers remote
// force updates to subscribed clients.
package push

import "github.com/mekforge/forcesync/internal/force"

// Handler receives a pushed snapshot for a subscribed instance id.
type Handler func(snapshot force.Snapshot)

// Channel is the push collaborator contract. Subscriptions are keyed by
// force instance id; the connectivity callback fires on every edge, and a
// rising edge (false to true) triggers the controller's conflict sweep.
type Channel interface {
	Subscribe(instanceID string, handler Handler)
	Unsubscribe(instanceID string)
	// OnConnectivityChange registers a callback invoked with the new
	// connected state whenever it changes.
	OnConnectivityChange(fn func(connected bool))
	// Connected reports the current connectivity state.
	Connected() bool
}
