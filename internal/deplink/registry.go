package deplink

import "fmt"

// Config declares one dependency link in the instance configuration.
type Config struct {
	Name      string            `toml:"name" yaml:"name" json:"name" mapstructure:"name"`
	Variant   string            `toml:"variant" yaml:"variant" json:"variant" mapstructure:"variant"`
	Mandatory bool              `toml:"mandatory" yaml:"mandatory" json:"mandatory" mapstructure:"mandatory"`
	Options   map[string]string `toml:"options,omitempty" yaml:"options,omitempty" json:"options,omitempty" mapstructure:"options"`
}

// Constructor builds a link of one variant from its declaration and
// the channel carrying its data.
type Constructor func(cfg Config, ch Channel) (Link, error)

// Registry is the closed set of supported link variants, injected at
// controller construction. Variants are not discovered dynamically.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// DefaultRegistry returns a registry with every built-in variant. The
// peer-group variant is not channel-backed and is wired separately
// through peers.Coordinator.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("database", func(cfg Config, ch Channel) (Link, error) {
		return NewDatabase(cfg, ch), nil
	})
	r.Register("message-broker", func(cfg Config, ch Channel) (Link, error) {
		return NewBroker(cfg, ch), nil
	})
	r.Register("identity-provider", func(cfg Config, ch Channel) (Link, error) {
		return NewIdentity(cfg, ch), nil
	})
	r.Register("ingress", func(cfg Config, ch Channel) (Link, error) {
		return NewIngress(cfg, ch), nil
	})
	r.Register("certificate-authority", func(cfg Config, ch Channel) (Link, error) {
		return NewCertificates(cfg, ch), nil
	})
	r.Register("generic", func(cfg Config, ch Channel) (Link, error) {
		return NewGeneric(cfg, ch), nil
	})
	return r
}

func (r *Registry) Register(variant string, fn Constructor) {
	r.constructors[variant] = fn
}

// Build constructs the link declared by cfg.
func (r *Registry) Build(cfg Config, ch Channel) (Link, error) {
	fn, ok := r.constructors[cfg.Variant]
	if !ok {
		return nil, fmt.Errorf("unsupported dependency variant: %s", cfg.Variant)
	}
	return fn(cfg, ch)
}

// Variants lists the registered variant tags.
func (r *Registry) Variants() []string {
	out := make([]string, 0, len(r.constructors))
	for v := range r.constructors {
		out = append(out, v)
	}
	return out
}
