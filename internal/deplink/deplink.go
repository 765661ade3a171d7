// Package deplink models the external integration points of one
// service instance. A link wraps a data channel to a remote
// collaborator (database, message broker, identity provider, ingress
// router, certificate authority, peer group) and exposes a readiness
// predicate plus the semantic context extracted for rendering.
package deplink

import "strings"

// Scope selects the region of a channel's data a read addresses.
type Scope string

const (
	ScopeLocalApp   Scope = "local-app"
	ScopeLocalUnit  Scope = "local-unit"
	ScopeRemoteApp  Scope = "remote-app"
	ScopeRemoteUnit Scope = "remote-unit"
)

// Channel is the raw dependency-data transport a link borrows. The
// wire protocol behind it is out of scope; MemChannel implements it
// in process.
type Channel interface {
	// Subscribe registers a callback fired when data on the channel
	// changes. The trigger names the event for logging.
	Subscribe(event string, fn func(trigger string))
	// Read returns the value for key in scope, if present.
	Read(scope Scope, key string) (string, bool)
	// IsLeader reports whether this instance is the elected leader.
	IsLeader() bool
}

// Link is one declared integration point.
type Link interface {
	Name() string
	Mandatory() bool
	// Ready is the variant-specific predicate over currently visible
	// remote data.
	Ready() bool
	// Context extracts the semantic fields for downstream rendering.
	// Missing data yields an empty map, never an error: an empty
	// context means "not ready", not failure.
	Context() map[string]string
}

// ContextKey normalises a link name for use as a render-context
// namespace ("api-database" -> "api_database").
func ContextKey(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// read is a small helper: remote-app scope is where collaborators
// publish their data, so every variant reads from there.
func read(ch Channel, key string) (string, bool) {
	if ch == nil {
		return "", false
	}
	return ch.Read(ScopeRemoteApp, key)
}
