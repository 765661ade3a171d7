package deplink

// Identity links to an identity provider issuing service credentials.
// Readiness hinges on the secret credential being present.
type Identity struct {
	name      string
	mandatory bool
	ch        Channel
}

func NewIdentity(cfg Config, ch Channel) *Identity {
	return &Identity{name: cfg.Name, mandatory: cfg.Mandatory, ch: ch}
}

func (i *Identity) Name() string    { return i.name }
func (i *Identity) Mandatory() bool { return i.mandatory }

func (i *Identity) Ready() bool {
	pass, ok := read(i.ch, "password")
	return ok && pass != ""
}

func (i *Identity) Context() map[string]string {
	if !i.Ready() {
		return map[string]string{}
	}
	ctx := map[string]string{}
	for _, key := range []string{"auth-url", "username", "password", "project", "region"} {
		if v, ok := read(i.ch, key); ok {
			ctx[ContextKey(key)] = v
		}
	}
	return ctx
}
