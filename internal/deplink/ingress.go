package deplink

import (
	"log/slog"
	"net/url"
)

// Ingress links to an ingress router fronting this service. The
// router publishes the externally reachable URL once routing is set
// up; its presence is the readiness signal.
type Ingress struct {
	name      string
	mandatory bool
	ch        Channel
}

func NewIngress(cfg Config, ch Channel) *Ingress {
	return &Ingress{name: cfg.Name, mandatory: cfg.Mandatory, ch: ch}
}

func (i *Ingress) Name() string    { return i.name }
func (i *Ingress) Mandatory() bool { return i.mandatory }

func (i *Ingress) Ready() bool {
	u, ok := read(i.ch, "url")
	return ok && u != ""
}

// URL returns the externally reachable URL, or "" when not ready.
func (i *Ingress) URL() string {
	u, _ := read(i.ch, "url")
	return u
}

func (i *Ingress) Context() map[string]string {
	raw := i.URL()
	if raw == "" {
		return map[string]string{}
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		slog.Debug("ignoring malformed ingress url", "link", i.name, "url", raw)
		return map[string]string{}
	}
	return map[string]string{
		"ingress_url":  raw,
		"ingress_path": parsed.Path,
	}
}
