package deplink

import "strings"

// Generic links to a collaborator with no dedicated variant. Required
// keys drive readiness; context extracts the listed keys verbatim.
type Generic struct {
	name      string
	mandatory bool
	required  []string
	extract   []string
	ch        Channel
}

// NewGeneric builds a generic link. Options: "required" is a
// comma-separated list of keys that must all be present for
// readiness; "extract" the keys copied into the context (defaults to
// the required keys).
func NewGeneric(cfg Config, ch Channel) *Generic {
	required := splitList(cfg.Options["required"])
	extract := splitList(cfg.Options["extract"])
	if len(extract) == 0 {
		extract = required
	}
	return &Generic{
		name:      cfg.Name,
		mandatory: cfg.Mandatory,
		required:  required,
		extract:   extract,
		ch:        ch,
	}
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (g *Generic) Name() string    { return g.name }
func (g *Generic) Mandatory() bool { return g.mandatory }

func (g *Generic) Ready() bool {
	for _, key := range g.required {
		if v, ok := read(g.ch, key); !ok || v == "" {
			return false
		}
	}
	return true
}

func (g *Generic) Context() map[string]string {
	if !g.Ready() {
		return map[string]string{}
	}
	ctx := map[string]string{}
	for _, key := range g.extract {
		if v, ok := read(g.ch, key); ok {
			ctx[ContextKey(key)] = v
		}
	}
	return ctx
}
